package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	out, err := ToHTML("# Sunset\n\nShot at **f/8**.")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Sunset</h1>")
	assert.Contains(t, out, "<strong>f/8</strong>")
}

func TestToHTML_EscapesRawHTML(t *testing.T) {
	out, err := ToHTML("hello <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestToHTML_Empty(t *testing.T) {
	out, err := ToHTML("   ")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPlainText(t *testing.T) {
	src := "# Golden hour\n\nShot with a *Canon R5*, see [notes](http://example.com).\n\n- tripod\n- ND filter\n\n```\niso=200\n```\n"
	got := PlainText(src)

	assert.Equal(t, "Golden hour Shot with a Canon R5, see notes. tripod ND filter iso=200", got)
}

func TestPlainText_Empty(t *testing.T) {
	assert.Empty(t, PlainText(""))
}

func TestFromHTML(t *testing.T) {
	out, err := FromHTML(`<h2>Recipe</h2><p>Use <strong>fresh</strong> basil.</p>`)
	require.NoError(t, err)
	assert.Contains(t, out, "## Recipe")
	assert.Contains(t, out, "**fresh**")
}
