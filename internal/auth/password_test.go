// internal/auth/password_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashParallelismNeverZero(t *testing.T) {
	assert.GreaterOrEqual(t, Params.parallelism, uint8(1), "argon2 rejects a zero parallelism degree")
	assert.GreaterOrEqual(t, hashParallelism(), uint8(1))
}

func TestCreateAndCompareHash(t *testing.T) {
	encoded, err := CreateHash("open-sesame", Params)
	require.NoError(t, err)

	ok, err := ComparePasswordAndHash("open-sesame", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeHashRejectsGarbage(t *testing.T) {
	_, _, _, err := DecodeHash("not-an-encoded-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}
