package domain_test

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"golang.org/x/crypto/sha3"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	for _, network := range []domain.NetworkType{domain.MainNet, domain.TestNet} {
		addr := newAddress(t, network)
		require.Equal(t, network, addr.NetworkType())
		require.False(t, addr.IsZero())

		str := addr.String()
		require.Len(t, str, 39)
		if network == domain.TestNet {
			require.True(t, strings.HasPrefix(str, "T"))
		} else {
			require.True(t, strings.HasPrefix(str, "N"))
		}

		for _, encoded := range []string{
			str, strings.ToLower(str), addr.Pretty(), addr.Hex(),
			strings.ToLower(addr.Hex()), " " + str + " ",
		} {
			parsed, err := domain.ParseAddress(encoded)
			require.NoError(t, err)
			require.True(t, addr.Equals(parsed))
		}
	}
}

func TestParseInvalidAddress(t *testing.T) {
	t.Parallel()

	addr := newAddress(t, domain.TestNet)
	raw, err := hex.DecodeString(addr.Hex())
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	badChecksum := strings.ToUpper(hex.EncodeToString(raw))

	// Well formed address on an unknown network, with a valid checksum.
	raw[0] = 0x00
	checksum := sha3.Sum256(raw[:21])
	copy(raw[21:], checksum[:3])
	unknownNetwork := strings.ToUpper(hex.EncodeToString(raw))

	tests := []struct {
		name          string
		address       string
		expectedError error
	}{
		{"empty", "", domain.ErrMissingAddress},
		{"too_short", addr.String()[:20], domain.ErrInvalidAddressLength},
		{"invalid_base32", "1" + addr.String()[1:], domain.ErrInvalidAddressEncoding},
		{"invalid_hex", "ZZ" + addr.Hex()[2:], domain.ErrInvalidAddressEncoding},
		{"invalid_checksum", badChecksum, domain.ErrInvalidAddressChecksum},
		{"unknown_network", unknownNetwork, domain.ErrInvalidNetwork},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			addr, err := domain.ParseAddress(tt.address)
			require.ErrorIs(t, err, tt.expectedError)
			require.True(t, domain.IsValidationError(err))
			require.True(t, addr.IsZero())
		})
	}
}

func TestAddressFromPublicKey(t *testing.T) {
	t.Parallel()

	pubkey, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pubkeyHex := hex.EncodeToString(pubkey)

	addr, err := domain.NewAddressFromPublicKey(pubkeyHex, domain.TestNet)
	require.NoError(t, err)

	// Derivation doesn't depend on the case of the key.
	other, err := domain.NewAddressFromPublicKey(
		strings.ToUpper(pubkeyHex), domain.TestNet,
	)
	require.NoError(t, err)
	require.Equal(t, addr, other)

	// Same key, different network.
	other, err = domain.NewAddressFromPublicKey(pubkeyHex, domain.MainNet)
	require.NoError(t, err)
	require.NotEqual(t, addr, other)

	_, err = domain.NewAddressFromPublicKey("00", domain.TestNet)
	require.ErrorIs(t, err, domain.ErrInvalidPublicKey)

	for _, network := range []domain.NetworkType{0, 0x55} {
		addr, err := domain.NewAddressFromPublicKey(pubkeyHex, network)
		require.ErrorIs(t, err, domain.ErrInvalidNetwork)
		require.True(t, addr.IsZero())
		require.False(t, network.IsValid())
	}
}

func TestAddressJSON(t *testing.T) {
	t.Parallel()

	addr := newAddress(t, domain.TestNet)
	buf, err := json.Marshal(map[string]domain.Address{"address": addr})
	require.NoError(t, err)
	require.Contains(t, string(buf), addr.String())

	var decoded map[string]domain.Address
	err = json.Unmarshal(buf, &decoded)
	require.NoError(t, err)
	require.Equal(t, addr, decoded["address"])
}

func TestParseNetworkType(t *testing.T) {
	t.Parallel()

	network, ok := domain.ParseNetworkType("TestNet")
	require.True(t, ok)
	require.Equal(t, domain.TestNet, network)
	require.Equal(t, "testnet", network.String())

	_, ok = domain.ParseNetworkType("regtest")
	require.False(t, ok)
}

func newAddress(t *testing.T, network domain.NetworkType) domain.Address {
	pubkey, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr, err := domain.NewAddressFromPublicKey(hex.EncodeToString(pubkey), network)
	require.NoError(t, err)
	return addr
}
