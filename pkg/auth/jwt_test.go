package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundtrip(t *testing.T) {
	req := require.New(t)
	j := New("secret")

	tok, err := j.Sign("user-1", time.Hour)
	req.NoError(err)

	uid, err := j.Verify(tok)
	req.NoError(err)
	req.Equal("user-1", uid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	tok, err := New("secret-a").Sign("user-1", time.Hour)
	req.NoError(err)

	_, err = New("secret-b").Verify(tok)
	req.Error(err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	req := require.New(t)
	j := New("secret")
	tok, err := j.Sign("user-1", -time.Minute)
	req.NoError(err)

	_, err = j.Verify(tok)
	req.Error(err)
}

func TestSignRejectsEmptyUID(t *testing.T) {
	_, err := New("secret").Sign("", time.Hour)
	require.Error(t, err)
}

func TestUserIDContext(t *testing.T) {
	req := require.New(t)
	req.Equal("anon", UserID(context.Background()))

	ctx := WithUser(context.Background(), "user-9")
	req.Equal("user-9", UserID(ctx))
}
