package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
	"github.com/IMBotPlatform/IMBotChat/pkg/botcore"
)

func TestHealthz(t *testing.T) {
	h := newHarness(t, replyModel())

	rec := httptest.NewRecorder()
	h.bot.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHistoryAPI(t *testing.T) {
	h := newHarness(t, replyModel())
	ctx := context.Background()

	chunks := h.svc.Handler().Trigger(ctx, botcore.Update{ChatID: "abc123", Text: "Hello"}, "s")
	for range chunks {
	}

	rec := httptest.NewRecorder()
	h.bot.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/abc123/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "abc123", body.SessionID)
	require.Len(t, body.Messages, 2)
	require.Equal(t, ai.RoleUser, body.Messages[0].Role)
	require.Equal(t, "Re: Hello", body.Messages[1].Content)

	// 未知会话按 get_or_create 语义返回空列表
	rec = httptest.NewRecorder()
	h.bot.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/nobody/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"session_id":"nobody","messages":[]}`, rec.Body.String())
}

func TestClearAPI(t *testing.T) {
	h := newHarness(t, replyModel())
	ctx := context.Background()
	for range h.svc.Handler().Trigger(ctx, botcore.Update{ChatID: "abc123", Text: "Hello"}, "s") {
	}
	client, _ := h.hub.Clients().CreateOrGet("")

	rec := httptest.NewRecorder()
	h.bot.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/clear", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, h.svc.History(ctx, "abc123"))
	require.Empty(t, client.Log())

	rec = httptest.NewRecorder()
	h.bot.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clear", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
