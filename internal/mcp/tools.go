package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchBenefitsTool defines the search_benefits MCP tool.
var searchBenefitsTool = mcp.NewTool("search_benefits",
	mcp.WithDescription("Search indexed VA.gov pages semantically. Returns the most relevant passages with their source URLs."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 8)"),
	),
)

// askBenefitsTool defines the ask_benefits MCP tool.
var askBenefitsTool = mcp.NewTool("ask_benefits",
	mcp.WithDescription("Ask the VA benefits assistant a question. The question passes the same safety checks as the chat and is answered from VA.gov content."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The veteran's question"),
	),
	mcp.WithString("slot",
		mcp.Description("Configured provider label to answer with (default: the first default slot)"),
	),
)

// checkPolicyTool defines the check_policy MCP tool.
var checkPolicyTool = mcp.NewTool("check_policy",
	mcp.WithDescription("Run the input safety checks on a message and report whether the assistant would answer it."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Message to check"),
	),
)
