package mail

import (
	"io"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/require"
)

func TestDevModeSkipsSMTP(t *testing.T) {
	m := New("", 0, "", "", "no-reply@test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := m.SendPasswordReset("user@example.com", "http://localhost/reset?token=abc")
	require.NoError(t, err)
}
