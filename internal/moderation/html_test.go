package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	html := `<div><style>p{color:red}</style><p>Limited   offer!</p>
<a href="http://phish.example/verify">verify your account</a><script>alert(1)</script></div>`

	text, err := PlainText(html)
	require.NoError(t, err)
	assert.Equal(t, "Limited offer! verify your account http://phish.example/verify", text)
}

func TestIsHTML(t *testing.T) {
	assert.True(t, IsHTML("html"))
	assert.True(t, IsHTML("text/html; charset=utf-8"))
	assert.False(t, IsHTML("message"))
	assert.False(t, IsHTML(""))
}
