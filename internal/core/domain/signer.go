package domain

// Signer is an identity on whose behalf the current account can originate a
// transaction: the account itself or one of the multisig accounts it
// (directly or indirectly) cosigns for.
type Signer struct {
	Address              Address
	Label                string
	Multisig             bool
	RequiredCosignatures int
	ParentSigners        []Signer
}

// Signers is an ordered list of signers.
type Signers []Signer

// Contains returns whether the list has a signer with the given address.
func (s Signers) Contains(addr Address) bool {
	for _, signer := range s {
		if signer.Address.Equals(addr) {
			return true
		}
	}
	return false
}

// Find returns the signer with the given address.
func (s Signers) Find(addr Address) (*Signer, bool) {
	for i := range s {
		if s[i].Address.Equals(addr) {
			return &s[i], true
		}
	}
	return nil, false
}

func (s Signers) Addresses() Addresses {
	addresses := make(Addresses, 0, len(s))
	for _, signer := range s {
		addresses = append(addresses, signer.Address)
	}
	return addresses
}
