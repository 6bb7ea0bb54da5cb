package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/crm-gateway/internal/auth"
)

func TestCheckPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)

	require.True(t, auth.CheckPassword(hash, "s3cret-pass"))
	require.False(t, auth.CheckPassword(hash, "wrong"))
	require.False(t, auth.CheckPassword("", "s3cret-pass"))
	require.False(t, auth.CheckPassword("not-a-bcrypt-hash", "s3cret-pass"))
}
