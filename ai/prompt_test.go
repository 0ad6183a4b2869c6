package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURL(t *testing.T) {
	mime, data, err := ParseDataURL("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "aGVsbG8=", data)
}

func TestParseDataURL_Malformed(t *testing.T) {
	for _, s := range []string{
		"",
		"https://example.com/photo.png",
		"data:image/png,notbase64marker",
		"data:text/plain;base64,aGVsbG8=",
		"base64,aGVsbG8=",
	} {
		_, _, err := ParseDataURL(s)
		assert.ErrorIs(t, err, ErrInvalidImageData, "input %q", s)
	}
}

func TestRenderTemplate(t *testing.T) {
	got := RenderTemplate("Restore {{prompt}} carefully, {{prompt}} only.", "an amphora")
	assert.Equal(t, "Restore an amphora carefully, an amphora only.", got)

	assert.Equal(t, "no placeholder", RenderTemplate("no placeholder", "x"))
}

func TestExtractFirstJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"prose around", "Sure! Here it is:\n```json\n{\"a\":{\"b\":2}}\n``` hope it helps", `{"a":{"b":2}}`, true},
		{"braces inside strings", `{"text":"closing } inside"}`, `{"text":"closing } inside"}`, true},
		{"escaped quote", `{"text":"say \" { ok"}`, `{"text":"say \" { ok"}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", "nothing here", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFirstJSONObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
