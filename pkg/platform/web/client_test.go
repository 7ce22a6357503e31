package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
)

func TestClientManagerCreateOrGet(t *testing.T) {
	m := NewClientManager(time.Minute, "안녕하세요.", "abc123")

	c, created := m.CreateOrGet("")
	require.True(t, created)
	require.NotEmpty(t, c.ID)
	require.Equal(t, "abc123", c.SessionID())
	require.Equal(t, []ai.Message{ai.AssistantMessage("안녕하세요.")}, c.Log())

	again, created := m.CreateOrGet(c.ID)
	require.False(t, created)
	require.Same(t, c, again)

	// 服务重启后浏览器仍带着旧 cookie：沿用该 ID 新建
	restored, created := m.CreateOrGet("stale-cookie")
	require.True(t, created)
	require.Equal(t, "stale-cookie", restored.ID)
}

func TestClientManagerNoGreeting(t *testing.T) {
	m := NewClientManager(time.Minute, "", "s")
	c, _ := m.CreateOrGet("")
	require.Empty(t, c.Log())
}

func TestClientLogAndSession(t *testing.T) {
	m := NewClientManager(time.Minute, "hi", "abc123")
	c, _ := m.CreateOrGet("")

	c.AppendLog(ai.UserMessage("Hello"), ai.AssistantMessage("Hey"))
	log := c.Log()
	require.Len(t, log, 3)
	log[0].Content = "mutated"
	require.Equal(t, "hi", c.Log()[0].Content)

	require.True(t, c.SetSessionID("xyz"))
	require.False(t, c.SetSessionID("xyz"))
	require.Len(t, c.Log(), 3)

	other, _ := m.CreateOrGet("")
	cleared := m.ClearLogs()
	require.Len(t, cleared, 2)
	require.Empty(t, c.Log())
	require.Empty(t, other.Log())
}

func TestClientManagerCleanup(t *testing.T) {
	m := NewClientManager(time.Millisecond, "", "s")
	idle, _ := m.CreateOrGet("idle")
	busy, _ := m.CreateOrGet("busy")
	busy.attach()

	time.Sleep(5 * time.Millisecond)
	require.Equal(t, 1, m.Cleanup())
	require.Nil(t, m.Get(idle.ID))
	require.Same(t, busy, m.Get(busy.ID))
	require.Equal(t, 1, busy.Connected())

	busy.detach()
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, 1, m.Cleanup())
	require.Empty(t, m.Clients())
}

func TestClientAppendLogIfSkipsAfterClear(t *testing.T) {
	m := NewClientManager(time.Minute, "", "abc123")
	c, _ := m.CreateOrGet("")

	epoch := c.Epoch()
	require.True(t, c.AppendLogIf(epoch, ai.UserMessage("Hello")))

	m.ClearLogs()
	require.NotEqual(t, epoch, c.Epoch())
	require.False(t, c.AppendLogIf(epoch, ai.AssistantMessage("late")))
	require.Empty(t, c.Log())

	require.True(t, c.AppendLogIf(c.Epoch(), ai.UserMessage("again")))
	require.Len(t, c.Log(), 1)
}
