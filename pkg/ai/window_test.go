package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func wordCounter() TokenCounter {
	return TokenCounterFunc(func(text string) int {
		return len(strings.Fields(text))
	})
}

func TestWindowTrimKeepsNewest(t *testing.T) {
	history := []Message{
		UserMessage("one two three"),
		AssistantMessage("four five"),
		UserMessage("six"),
		AssistantMessage("seven eight"),
	}

	w := &Window{MaxTokens: 5, Counter: wordCounter()}
	got := w.Trim(history)
	require.Equal(t, history[1:], got)
}

func TestWindowTrimDisabled(t *testing.T) {
	history := []Message{UserMessage("a b c d e f")}

	var nilWindow *Window
	require.Equal(t, history, nilWindow.Trim(history))
	require.Equal(t, history, (&Window{Counter: wordCounter()}).Trim(history))
	require.Equal(t, history, (&Window{MaxTokens: 1}).Trim(history))
}

func TestWindowTrimOversizedNewest(t *testing.T) {
	history := []Message{UserMessage("short"), AssistantMessage("far too many words here")}
	w := &Window{MaxTokens: 2, Counter: wordCounter()}
	require.Empty(t, w.Trim(history))
}

func TestTokenCounter(t *testing.T) {
	counter, err := NewTokenCounter()
	require.NoError(t, err)
	require.Positive(t, counter.Count("hello world"))
	require.Zero(t, counter.Count(""))
}
