package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpusqa/core"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"file:///docs/readme.txt", "text/plain"},
		{"file:///docs/guide.MD", "text/markdown"},
		{"file:///docs/page.html", "text/html"},
		{"file:///docs/page.htm", "text/html"},
		{"file:///docs/app.log", "text/plain"},
		{"file:///docs/image.png", ""},
		{"file:///docs/noext", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectContentType(tt.uri), tt.uri)
	}
}

func TestExtractText(t *testing.T) {
	t.Run("plain text passes through", func(t *testing.T) {
		text, err := ExtractText("text/plain", []byte("hello world"))
		require.NoError(t, err)
		assert.Equal(t, "hello world", text)
	})

	t.Run("markdown keeps syntax", func(t *testing.T) {
		text, err := ExtractText("text/markdown", []byte("# Title\n\nSome *text*."))
		require.NoError(t, err)
		assert.Equal(t, "# Title\n\nSome *text*.", text)
	})

	t.Run("html strips tags", func(t *testing.T) {
		src := `<html><head><title>VPN Setup</title><style>p{color:red}</style></head>
			<body><p>Open <b>System Settings</b>.</p><script>alert(1)</script></body></html>`
		text, err := ExtractText("text/html", []byte(src))
		require.NoError(t, err)
		assert.Contains(t, text, "VPN Setup")
		assert.Contains(t, text, "Open System Settings .")
		assert.NotContains(t, text, "alert")
		assert.NotContains(t, text, "color:red")
	})

	t.Run("undetected type falls back to UTF-8 text", func(t *testing.T) {
		text, err := ExtractText("", []byte("plain enough"))
		require.NoError(t, err)
		assert.Equal(t, "plain enough", text)
	})

	t.Run("declared type without an extractor", func(t *testing.T) {
		_, err := ExtractText("application/pdf", []byte("%PDF-1.4"))
		assert.ErrorIs(t, err, core.ErrUnsupportedContentType)
	})

	t.Run("binary content", func(t *testing.T) {
		_, err := ExtractText("text/plain", []byte{0xff, 0xfe, 0x00, 0x80})
		assert.ErrorIs(t, err, core.ErrUnsupportedContentType)
	})
}
