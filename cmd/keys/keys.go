package keys

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"voicetrader/src/security"
)

var ErrEmptyToken = errors.New("token is empty")

// EncryptToken writes an env line holding the sealed API token, ready to paste into .env.
func EncryptToken(w io.Writer, cfg Config, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	sealed, err := security.EncryptString(token)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}

	_, err = fmt.Fprintf(w, "%s=%s\n", cfg.EnvName, sealed)
	return err
}
