package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	mac, err := Sign(key, "12345")
	require.NoError(t, err)

	assert.NoError(t, Verify(key, mac, "12345"))
}

func TestVerify_WrongValue(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	mac, err := Sign(key, "12345")
	require.NoError(t, err)

	assert.ErrorIs(t, Verify(key, mac, "54321"), ErrInvalidSignature)
}

func TestVerify_WrongKey(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()

	mac, err := Sign(key1, "12345")
	require.NoError(t, err)

	assert.ErrorIs(t, Verify(key2, mac, "12345"), ErrInvalidSignature)
}

func TestVerify_GarbageMac(t *testing.T) {
	key, _ := GenerateKey()
	assert.ErrorIs(t, Verify(key, "not-base64!!!", "12345"), ErrInvalidSignature)
}

func TestSign_MultipleValuesOrderMatters(t *testing.T) {
	key, _ := GenerateKey()

	a, err := Sign(key, "a", "b")
	require.NoError(t, err)
	b, err := Sign(key, "b", "a")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
