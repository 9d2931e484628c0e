package auth

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenIsPrefixedAndUnique(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, TokenPrefix))
	assert.Len(t, a, len(TokenPrefix)+48)
	assert.NotEqual(t, a, b)
}

func TestHashTokenIgnoresEnvWhitespace(t *testing.T) {
	assert.Equal(t, HashToken("para_tk_abc"), HashToken(" para_tk_abc\n"))
}

func TestCheck(t *testing.T) {
	hash := HashToken("secret")
	assert.NoError(t, Check("secret", hash))
	assert.ErrorIs(t, Check("Secret", hash), ErrInvalidToken)
	assert.ErrorIs(t, Check("", hash), ErrMissingToken)
	assert.ErrorIs(t, Check("secret", ""), ErrInvalidToken)
}

func TestCredential(t *testing.T) {
	cases := []struct {
		name   string
		header http.Header
		want   string
	}{
		{"bearer", http.Header{"Authorization": {"Bearer abc"}}, "abc"},
		{"bearer padded", http.Header{"Authorization": {"Bearer   abc "}}, "abc"},
		{"lowercase scheme", http.Header{"Authorization": {"bearer abc"}}, "abc"},
		{"empty bearer", http.Header{"Authorization": {"Bearer "}}, ""},
		{"basic rejected", http.Header{"Authorization": {"Basic abc"}}, ""},
		{"apikey fallback", http.Header{"Apikey": {"xyz"}}, "xyz"},
		{"authorization wins", http.Header{"Authorization": {"Basic abc"}, "Apikey": {"xyz"}}, ""},
		{"none", http.Header{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Credential(tc.header))
		})
	}
}
