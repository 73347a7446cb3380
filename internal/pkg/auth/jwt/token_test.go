package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u-1", Username: "alice"}, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.ID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenIssuer, claims.Issuer)
}

func TestParseTokenRejects(t *testing.T) {
	valid, err := GenerateToken(&Payload{ID: "u-1"}, secret, time.Hour)
	require.NoError(t, err)

	expired, err := GenerateToken(&Payload{ID: "u-1"}, secret, -time.Minute)
	require.NoError(t, err)

	noSubject, err := GenerateToken(&Payload{}, secret, time.Hour)
	require.NoError(t, err)

	cases := map[string]struct {
		token  string
		secret string
	}{
		"empty":        {"", secret},
		"garbage":      {"not.a.token", secret},
		"wrong secret": {valid, "other"},
		"expired":      {expired, secret},
		"no subject":   {noSubject, secret},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tc.token, tc.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", BearerToken(r))
}
