package domain

import (
	"bytes"
	"encoding/base32"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

const (
	addressSize         = 24
	addressChecksumSize = 3
	addressEncodedSize  = 39
	addressHexSize      = addressSize * 2
	publicKeySize       = 32
)

const (
	MainNet NetworkType = 0x68
	TestNet NetworkType = 0x98
)

var (
	networkTypeString = map[NetworkType]string{
		MainNet: "mainnet",
		TestNet: "testnet",
	}
	networkTypeByName = map[string]NetworkType{
		"mainnet": MainNet,
		"testnet": TestNet,
	}
)

// NetworkType is the first byte of every address.
type NetworkType byte

func (n NetworkType) String() string {
	if s, ok := networkTypeString[n]; ok {
		return s
	}
	return "unknown"
}

// IsValid returns whether the network is a known one.
func (n NetworkType) IsValid() bool {
	_, ok := networkTypeString[n]
	return ok
}

// ParseNetworkType returns the network type identified by the given name.
func ParseNetworkType(name string) (NetworkType, bool) {
	n, ok := networkTypeByName[strings.ToLower(name)]
	return n, ok
}

// Address is the decoded form of an account address: network byte, public
// key hash and checksum.
type Address [addressSize]byte

// ParseAddress decodes an address either in its base32 text form (with or
// without '-' separators) or in the 48 chars hex form returned by the node.
func ParseAddress(str string) (Address, error) {
	str = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(str, "-", "")))
	if len(str) == 0 {
		return Address{}, ErrMissingAddress
	}

	var raw []byte
	switch len(str) {
	case addressEncodedSize:
		buf, err := base32.StdEncoding.DecodeString(str + "A")
		if err != nil {
			return Address{}, ErrInvalidAddressEncoding
		}
		raw = buf[:addressSize]
	case addressHexSize:
		buf, err := hex.DecodeString(str)
		if err != nil {
			return Address{}, ErrInvalidAddressEncoding
		}
		raw = buf
	default:
		return Address{}, ErrInvalidAddressLength
	}

	return AddressFromBytes(raw)
}

// AddressFromBytes validates the network byte and the checksum of the given
// raw address.
func AddressFromBytes(raw []byte) (Address, error) {
	if len(raw) != addressSize {
		return Address{}, ErrInvalidAddressLength
	}
	if !NetworkType(raw[0]).IsValid() {
		return Address{}, ErrInvalidNetwork
	}

	body := raw[:addressSize-addressChecksumSize]
	if !bytes.Equal(raw[len(body):], addressChecksum(body)) {
		return Address{}, ErrInvalidAddressChecksum
	}

	var addr Address
	copy(addr[:], raw)
	return addr, nil
}

// NewAddress builds the address of the given network for the given 20 bytes
// public key hash.
func NewAddress(network NetworkType, keyHash [20]byte) Address {
	body := append([]byte{byte(network)}, keyHash[:]...)

	var addr Address
	copy(addr[:], body)
	copy(addr[len(body):], addressChecksum(body))
	return addr
}

// NewAddressFromPublicKey derives the address of the account owning the
// given hex encoded public key.
func NewAddressFromPublicKey(
	publicKey string, network NetworkType,
) (Address, error) {
	if !network.IsValid() {
		return Address{}, ErrInvalidNetwork
	}
	buf, err := hex.DecodeString(publicKey)
	if err != nil || len(buf) != publicKeySize {
		return Address{}, ErrInvalidPublicKey
	}

	keyHash := sha3.Sum256(buf)
	hasher := ripemd160.New()
	hasher.Write(keyHash[:])

	var hash [20]byte
	copy(hash[:], hasher.Sum(nil))
	return NewAddress(network, hash), nil
}

func addressChecksum(body []byte) []byte {
	hash := sha3.Sum256(body)
	return hash[:addressChecksumSize]
}

// String returns the base32 text form of the address.
func (a Address) String() string {
	buf := append(a[:], 0)
	return base32.StdEncoding.EncodeToString(buf)[:addressEncodedSize]
}

// Pretty returns the address text split in groups of 6 chars.
func (a Address) Pretty() string {
	str := a.String()
	groups := make([]string, 0, len(str)/6+1)
	for i := 0; i < len(str); i += 6 {
		end := i + 6
		if end > len(str) {
			end = len(str)
		}
		groups = append(groups, str[i:end])
	}
	return strings.Join(groups, "-")
}

// Hex returns the 48 chars hex form of the address.
func (a Address) Hex() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

func (a Address) NetworkType() NetworkType {
	return NetworkType(a[0])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) Equals(other Address) bool {
	return a == other
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Addresses is a list of addresses preserving insertion order.
type Addresses []Address

// Contains returns whether the list holds an address equal to the given one.
func (l Addresses) Contains(addr Address) bool {
	for _, a := range l {
		if a.Equals(addr) {
			return true
		}
	}
	return false
}

func (l Addresses) Strings() []string {
	strs := make([]string, 0, len(l))
	for _, a := range l {
		strs = append(strs, a.String())
	}
	return strs
}
