package ai

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	h := store.GetOrCreate(ctx, "abc123")
	require.Equal(t, "abc123", h.ID())
	require.Empty(t, h.Messages())
	require.Same(t, h, store.GetOrCreate(ctx, "abc123"))

	// 空字符串也是合法的会话 ID
	empty := store.GetOrCreate(ctx, "")
	require.NotSame(t, h, empty)
	require.Equal(t, []string{"", "abc123"}, store.Sessions(ctx))
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.GetOrCreate(ctx, "a").Append(UserMessage("hi"), AssistantMessage("hello"))
	require.Empty(t, store.GetOrCreate(ctx, "b").Messages())
	require.Len(t, store.GetOrCreate(ctx, "a").Messages(), 2)
}

func TestHistoryMessagesIsCopy(t *testing.T) {
	h := NewHistory("s")
	h.Append(UserMessage("one"))

	msgs := h.Messages()
	msgs[0].Content = "changed"
	require.Equal(t, "one", h.Messages()[0].Content)
}

func TestMemoryStoreClearAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	held := store.GetOrCreate(ctx, "a")
	held.Append(UserMessage("x"))
	store.GetOrCreate(ctx, "b").Append(UserMessage("y"))

	store.ClearAll(ctx)

	require.Empty(t, store.Sessions(ctx))
	require.Empty(t, held.Messages())
	require.Empty(t, store.GetOrCreate(ctx, "a").Messages())
	require.Empty(t, store.GetOrCreate(ctx, "b").Messages())
}

func TestMemoryStoreClearHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.GetOrCreate(ctx, "a").Append(UserMessage("x"))
	store.GetOrCreate(ctx, "b").Append(UserMessage("y"))
	store.ClearHistory(ctx, "a")

	require.Equal(t, []string{"b"}, store.Sessions(ctx))
	require.Len(t, store.GetOrCreate(ctx, "b").Messages(), 1)
}

func TestMemoryStoreConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := store.GetOrCreate(ctx, "shared")
			h.Append(UserMessage(fmt.Sprint(i)), AssistantMessage(fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()

	msgs := store.GetOrCreate(ctx, "shared").Messages()
	require.Len(t, msgs, 40)
	// 成对写入不会被其他轮次打断
	for i := 0; i < len(msgs); i += 2 {
		require.Equal(t, RoleUser, msgs[i].Role)
		require.Equal(t, RoleAssistant, msgs[i+1].Role)
		require.Equal(t, msgs[i].Content, msgs[i+1].Content)
	}
}
