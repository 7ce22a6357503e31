package command

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
	"github.com/IMBotPlatform/IMBotChat/pkg/botcore"
)

type fakeBackend struct {
	mu       sync.Mutex
	history  map[string][]ai.Message
	models   []string
	cleared  int
	clearErr error
	switched map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		history:  map[string][]ai.Message{},
		models:   []string{"claude", "openai"},
		switched: map[string]string{},
	}
}

func (b *fakeBackend) History(ctx context.Context, sessionID string) []ai.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history[sessionID]
}

func (b *fakeBackend) ClearAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clearErr != nil {
		return b.clearErr
	}
	b.cleared++
	b.history = map[string][]ai.Message{}
	return nil
}

func (b *fakeBackend) SwitchSession(ctx context.Context, clientID, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.switched[clientID] = sessionID
	return nil
}

func (b *fakeBackend) Models() []string {
	return b.models
}

func run(t *testing.T, mgr *Manager, update botcore.Update) (string, error) {
	t.Helper()
	return Collect(mgr.Trigger(context.Background(), update, "stream"))
}

func TestManagerPing(t *testing.T) {
	mgr := NewManager(NewRootCmd, NewMemoryStore())

	out, err := run(t, mgr, botcore.Update{Text: "/ping"})
	require.NoError(t, err)
	require.Equal(t, "pong\n", out)
}

func TestManagerUnknownCommand(t *testing.T) {
	mgr := NewManager(NewRootCmd, NewMemoryStore())

	_, err := run(t, mgr, botcore.Update{Text: "/nope"})
	require.ErrorIs(t, err, ErrCommandNotFound)

	_, err = run(t, mgr, botcore.Update{Text: "plain text"})
	require.ErrorIs(t, err, ErrCommandRequired)
}

func TestManagerHelp(t *testing.T) {
	mgr := NewManager(NewRootCmd, NewMemoryStore())

	out, err := run(t, mgr, botcore.Update{Text: "/help"})
	require.NoError(t, err)
	require.Contains(t, out, "session")
	require.Contains(t, out, "history")
}

func TestManagerRequiresBackend(t *testing.T) {
	mgr := NewManager(NewRootCmd, NewMemoryStore())

	_, err := run(t, mgr, botcore.Update{Text: "/clear"})
	require.ErrorIs(t, err, ErrNoBackend)
}

func TestManagerArgValidation(t *testing.T) {
	mgr := NewManager(NewRootCmd, NewMemoryStore(), WithBackend(newFakeBackend()))

	_, err := run(t, mgr, botcore.Update{Text: "/session a b"})
	require.Error(t, err)
}

func TestManagerNotInitialized(t *testing.T) {
	var mgr *Manager
	_, err := Collect(mgr.Trigger(context.Background(), botcore.Update{Text: "/ping"}, "s"))
	require.Error(t, err)
}

func TestManagerCommandError(t *testing.T) {
	backend := newFakeBackend()
	mgr := NewManager(NewRootCmd, NewMemoryStore(), WithBackend(backend))

	out, err := run(t, mgr, botcore.Update{Text: "/model gpt-9"})
	require.Error(t, err)
	require.Empty(t, out)
	require.Contains(t, errors.Cause(err).Error(), "unknown model")
}
