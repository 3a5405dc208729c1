package domain

// Account is an entry of the address book, ie. an account known by the user
// under a human readable name.
type Account struct {
	Name      string
	Address   Address
	PublicKey string
}

// Accounts is a list of known accounts.
type Accounts []Account

// NameOf returns the name of the account with the given address, if known.
func (l Accounts) NameOf(addr Address) (string, bool) {
	for _, a := range l {
		if a.Address.Equals(addr) && a.Name != "" {
			return a.Name, true
		}
	}
	return "", false
}

// Addresses returns the addresses of the accounts.
func (l Accounts) Addresses() Addresses {
	addresses := make(Addresses, 0, len(l))
	for _, a := range l {
		addresses = append(addresses, a.Address)
	}
	return addresses
}
