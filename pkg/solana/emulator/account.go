package emulator

import (
	"crypto/ed25519"
)

// Account is the state stored against a single address: its lamport
// balance, the program that owns (and may mutate) it, and its raw data.
type Account struct {
	Lamports uint64
	Owner    ed25519.PublicKey
	Data     []byte
}

func (a *Account) clone() *Account {
	cloned := &Account{
		Lamports: a.Lamports,
		Owner:    make(ed25519.PublicKey, len(a.Owner)),
	}
	copy(cloned.Owner, a.Owner)

	if a.Data != nil {
		cloned.Data = make([]byte, len(a.Data))
		copy(cloned.Data, a.Data)
	}

	return cloned
}

// exists reports whether the account holds any observable state. Accounts
// that reach zero lamports with no data are reclaimed at commit time.
func (a *Account) exists() bool {
	return a.Lamports > 0 || len(a.Data) > 0
}
