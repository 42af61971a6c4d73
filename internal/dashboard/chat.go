package dashboard

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/vachat/internal/assistant"
	"github.com/ziadkadry99/vachat/internal/conversation"
	"github.com/ziadkadry99/vachat/internal/policy"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string   `json:"type"`       // "message"
	SessionID string   `json:"session_id"` // empty for new sessions
	Content   string   `json:"content"`
	Slots     []string `json:"slots,omitempty"`
}

// answerView is one slot's answer rendered for the page.
type answerView struct {
	Slot  string `json:"slot"`
	Model string `json:"model"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
	Error bool   `json:"error,omitempty"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string             `json:"type"` // "response", "blocked" or "error"
	SessionID string             `json:"session_id"`
	Content   string             `json:"content"`
	Category  policy.Category    `json:"category,omitempty"`
	Answers   []answerView       `json:"answers,omitempty"`
	Sources   []assistant.Source `json:"sources,omitempty"`
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("dashboard: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			d.sendError(conn, "", "invalid message format")
			continue
		}

		if req.Content == "" {
			d.sendError(conn, req.SessionID, "content is required")
			continue
		}

		switch req.Type {
		case "message":
			d.handleChatMessage(conn, r, req)
		default:
			d.sendError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (d *Dashboard) handleChatMessage(conn *websocket.Conn, r *http.Request, req chatRequest) {
	if d.service == nil || d.service.Engine == nil {
		d.sendError(conn, req.SessionID, "assistant not configured")
		return
	}

	res, sessionID, err := d.service.Turn(r.Context(), req.SessionID, req.Content, req.Slots)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			d.sendError(conn, req.SessionID, "session not found")
			return
		}
		if res == nil {
			d.sendError(conn, sessionID, "processing failed: "+err.Error())
			return
		}
		// The answer exists but could not be saved; still show it.
		log.Printf("dashboard: %v", err)
	}

	resp := chatResponse{
		Type:      "response",
		SessionID: sessionID,
		Sources:   res.Sources,
	}
	if !res.Verdict.Allowed {
		resp.Type = "blocked"
		resp.Category = res.Verdict.Category
		resp.Content = res.Verdict.Message
	}

	for _, a := range res.Answers {
		view := answerView{Slot: a.Slot, Model: a.Model, Text: a.Text, Error: a.Err != nil}
		html, err := d.renderer.Fragment(a.Text)
		if err != nil {
			log.Printf("dashboard: rendering answer from %s: %v", a.Slot, err)
		}
		view.HTML = html
		resp.Answers = append(resp.Answers, view)
	}
	if resp.Content == "" && len(res.Answers) > 0 {
		resp.Content = res.Answers[0].Text
	}

	d.sendResponse(conn, resp)
}

func (d *Dashboard) sendResponse(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("dashboard: websocket write: %v", err)
	}
}

func (d *Dashboard) sendError(conn *websocket.Conn, sessionID, message string) {
	resp := chatResponse{
		Type:      "error",
		SessionID: sessionID,
		Content:   message,
	}
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("dashboard: websocket write error: %v", err)
	}
}
