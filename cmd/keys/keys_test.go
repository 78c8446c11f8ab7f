package keys

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicetrader/src/security"
)

const testKey = "Pjk+k4hske5KkKtbaKSVDOgpllRl+0EI6oCAdx88XqI="

func TestEncryptTokenWritesEnvLine(t *testing.T) {
	t.Setenv("DERIV_CREDENTIALS_KEY", testKey)

	var out bytes.Buffer
	require.NoError(t, EncryptToken(&out, Config{EnvName: "DERIV_API_TOKEN_ENC"}, "  a1-token \n"))

	line := strings.TrimSpace(out.String())
	require.True(t, strings.HasPrefix(line, "DERIV_API_TOKEN_ENC="), line)

	plain, err := security.DecryptString(strings.TrimPrefix(line, "DERIV_API_TOKEN_ENC="))
	require.NoError(t, err)
	assert.Equal(t, "a1-token", plain)
}

func TestEncryptTokenErrors(t *testing.T) {
	t.Setenv("DERIV_CREDENTIALS_KEY", "")

	var out bytes.Buffer
	assert.ErrorIs(t, EncryptToken(&out, Config{EnvName: "X"}, " "), ErrEmptyToken)
	assert.ErrorIs(t, EncryptToken(&out, Config{EnvName: "X"}, "token"), security.ErrMissingKey)
	assert.Empty(t, out.String())
}
