package export

// transcriptTemplate is the html/template for an exported conversation.
const transcriptTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; max-width: 820px; margin: 2rem auto; padding: 0 1rem; color: #1b1b1b; }
    header { border-bottom: 3px solid #112e51; margin-bottom: 1.5rem; }
    header h1 { color: #112e51; font-size: 1.5rem; margin-bottom: .25rem; }
    header p { color: #5b616b; font-size: .85rem; }
    .turn { border-radius: 6px; padding: .75rem 1rem; margin-bottom: 1rem; }
    .turn.user { background: #f1f1f1; }
    .turn.assistant { background: #e1f3f8; }
    .meta { font-size: .75rem; color: #5b616b; text-transform: uppercase; letter-spacing: .05em; }
    details { margin-top: .5rem; font-size: .8rem; }
    details pre { white-space: pre-wrap; background: #fff; padding: .5rem; border: 1px solid #d6d7d9; }
    table { border-collapse: collapse; }
    td, th { border: 1px solid #d6d7d9; padding: .25rem .5rem; }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <p>Exported {{.Generated}}</p>
  </header>
  {{range .Turns}}
  <section class="turn {{.Role}}">
    <div class="meta">{{.Role}}{{if .Timestamp}} &middot; {{.Timestamp}}{{end}}</div>
    {{.HTML}}
    {{if .Context}}
    <details>
      <summary>Retrieved context</summary>
      <pre>{{.Context}}</pre>
    </details>
    {{end}}
  </section>
  {{else}}
  <p>No turns recorded.</p>
  {{end}}
</body>
</html>`
