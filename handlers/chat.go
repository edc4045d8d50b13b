package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"willdraft-go/chatbot"
)

type chatRequest struct {
	Query string `json:"query"`
}

// Chat always answers 200; bad queries and backend outages come back as
// fixed replies from the chatbot.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.log.Debug("unreadable chat request", zap.Error(err))
		sendJSON(w, http.StatusOK, chatbot.Reply{Response: chatbot.InvalidInputReply})
		return
	}
	sendJSON(w, http.StatusOK, h.chatbot.Ask(r.Context(), req.Query))
}
