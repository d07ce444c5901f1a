package oauth_test

import (
	"testing"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeChallengeKnownVector(t *testing.T) {
	// RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", oauth.GenerateCodeChallenge(verifier))
}

func TestGenerateCodeVerifier(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		v, err := oauth.GenerateCodeVerifier()
		require.NoError(t, err)
		assert.Len(t, v, 64)
		assert.Regexp(t, `^[A-Za-z0-9_-]+$`, v)
		assert.False(t, seen[v])
		seen[v] = true
	}
}

func TestGenerateState(t *testing.T) {
	a, err := oauth.GenerateState()
	require.NoError(t, err)
	b, err := oauth.GenerateState()
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9a-f]{64}$`, a)
	assert.NotEqual(t, a, b)
}
