package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast
var testParams = Params{Memory: 64, Time: 1, Threads: 1}

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(testParams)

	encoded := h.Hash([]byte("pw1"))
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=64,t=1,p=1$"), encoded)
	assert.NotContains(t, encoded, "pw1")

	ok, err := h.Verify(encoded, []byte("pw1"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(encoded, []byte("pw2"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SaltsEachDigest(t *testing.T) {
	h := NewHasher(testParams)

	a := h.Hash([]byte("same"))
	b := h.Hash([]byte("same"))
	assert.NotEqual(t, a, b, "two digests of one secret must differ by salt")

	for _, enc := range []string{a, b} {
		ok, err := h.Verify(enc, []byte("same"))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestVerify_UsesParamsFromDigest(t *testing.T) {
	old := NewHasher(Params{Memory: 32, Time: 2, Threads: 1})
	encoded := old.Hash([]byte("secret"))

	current := NewHasher(testParams)
	ok, err := current.Verify(encoded, []byte("secret"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, current.NeedsRehash(encoded))
	assert.False(t, old.NeedsRehash(encoded))
}

func TestVerify_LegacySHA256(t *testing.T) {
	h := NewHasher(testParams)
	sum := sha256.Sum256([]byte("pw1"))
	legacy := hex.EncodeToString(sum[:])

	ok, err := h.Verify(legacy, []byte("pw1"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(legacy, []byte("pw2"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, h.NeedsRehash(legacy))
}

func TestVerify_Malformed(t *testing.T) {
	h := NewHasher(testParams)

	for _, enc := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdA$",
	} {
		ok, err := h.Verify(enc, []byte("pw"))
		assert.ErrorIs(t, err, ErrMalformedHash, "input %q", enc)
		assert.False(t, ok)
		assert.True(t, h.NeedsRehash(enc))
	}
}

func TestNewHasher_FillsZeroParams(t *testing.T) {
	h := NewHasher(Params{})
	assert.Equal(t, DefaultParams.SaltLen, h.params.SaltLen)
	assert.Equal(t, DefaultParams.KeyLen, h.params.KeyLen)
	assert.Equal(t, uint8(1), h.params.Threads)
	assert.Equal(t, uint32(1), h.params.Time)
	assert.Equal(t, uint32(8), h.params.Memory)
}
