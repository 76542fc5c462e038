package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey  = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	otherKey = "8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a"
)

func TestParseKeyRing(t *testing.T) {
	t.Run("bare key becomes default", func(t *testing.T) {
		kr, err := ParseKeyRing("0x" + testKey)
		require.NoError(t, err)

		key, err := kr.Resolve("")
		require.NoError(t, err)
		want, _ := crypto.HexToECDSA(testKey)
		assert.Equal(t, crypto.PubkeyToAddress(want.PublicKey), crypto.PubkeyToAddress(key.PublicKey))
	})

	t.Run("named refs", func(t *testing.T) {
		kr, err := ParseKeyRing("default=" + testKey + ", vip=" + otherKey)
		require.NoError(t, err)

		a, err := kr.Address("default")
		require.NoError(t, err)
		b, err := kr.Address("vip")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty is allowed", func(t *testing.T) {
		kr, err := ParseKeyRing("")
		require.NoError(t, err)
		_, err = kr.Resolve("default")
		require.ErrorIs(t, err, ErrUnknownCredential)
	})

	t.Run("garbage key", func(t *testing.T) {
		_, err := ParseKeyRing("default=zz")
		require.Error(t, err)
	})
}
