package web

import (
	"encoding/json"
	"net/http"
)

type historyResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []MessageView `json:"messages"`
}

// handleHistory 返回会话历史；不存在的会话按空会话处理。
func (b *Bot) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	history := b.hub.History(r.Context(), sessionID)

	views := make([]MessageView, 0, len(history))
	for _, msg := range history {
		views = append(views, b.hub.markdown.View(msg.Role, msg.Content))
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Messages: views})
}

// handleClear 等同页面上的清空按钮。
func (b *Bot) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := b.hub.ClearAll(r.Context()); err != nil {
		b.logger.Warn().Err(err).Msg("clear all")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Bot) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
