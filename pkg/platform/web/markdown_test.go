package web

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
)

func TestMarkdownRender(t *testing.T) {
	md := NewMarkdown()

	out := md.Render("**bold** and `code`")
	require.Contains(t, out, "<strong>bold</strong>")
	require.Contains(t, out, "<code>code</code>")
}

func TestMarkdownSanitizes(t *testing.T) {
	md := NewMarkdown()

	out := md.Render("hi <script>alert(1)</script> [x](javascript:alert(1))")
	require.NotContains(t, out, "<script")
	require.NotContains(t, out, "javascript:")
}

func TestMarkdownView(t *testing.T) {
	view := NewMarkdown().View(ai.RoleAssistant, "# Title")
	require.Equal(t, ai.RoleAssistant, view.Role)
	require.Equal(t, "# Title", view.Content)
	require.Contains(t, view.HTML, "<h1")
}
