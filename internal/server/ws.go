package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/docbase-dev/docbase/internal/kb"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type       string `json:"type"` // "ask" or "search"
	Content    string `json:"content"`
	Technology string `json:"technology,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type    string           `json:"type"` // "answer", "results" or "error"
	Answer  *kb.RAGAnswer    `json:"answer,omitempty"`
	Results []kb.FusedResult `json:"results,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "invalid message format")
			continue
		}
		if req.Content == "" {
			s.sendWSError(conn, "content is required")
			continue
		}

		filters := kb.Filters{Technology: req.Technology}

		switch req.Type {
		case "ask":
			answer, err := s.asker.Ask(r.Context(), req.Content, filters)
			if err != nil {
				s.sendWSError(conn, err.Error())
				continue
			}
			s.sendWS(conn, wsResponse{Type: "answer", Answer: &answer})

		case "search":
			results, err := s.searcher.Retrieve(r.Context(), req.Content, req.Limit, filters)
			if err != nil {
				s.sendWSError(conn, err.Error())
				continue
			}
			if results == nil {
				results = []kb.FusedResult{}
			}
			s.sendWS(conn, wsResponse{Type: "results", Results: results})

		default:
			s.sendWSError(conn, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, message string) {
	s.sendWS(conn, wsResponse{Type: "error", Error: message})
}
