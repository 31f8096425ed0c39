package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

const checksumLength = 4

// Output is a spendable value unit bound to an address, as reported by the
// remote ledger service.
type Output struct {
	MessageID     string `json:"messageId"`
	TransactionID string `json:"transactionId"`
	Index         uint16 `json:"index"`
	Amount        uint64 `json:"amount"`
	Spent         bool   `json:"spent"`
}

// Key returns the outpoint key of the output.
func (o Output) Key() string {
	return fmt.Sprintf("%s:%d", o.TransactionID, o.Index)
}

// Address is a derived address belonging to an account. Its identity is the
// derivation key index only, never the address value or the balance.
type Address struct {
	Address  string            `json:"address"`
	Balance  uint64            `json:"balance"`
	KeyIndex int               `json:"keyIndex"`
	Checksum string            `json:"checksum"`
	Internal bool              `json:"internal"`
	Outputs  map[string]Output `json:"outputs,omitempty"`
}

// NewAddress returns an Address for the given value with its display checksum
// already derived.
func NewAddress(value string, balance uint64, keyIndex int, internal bool) (Address, error) {
	if len(value) <= 0 {
		return Address{}, ErrAddressRequired
	}
	return Address{
		Address:  value,
		Balance:  balance,
		KeyIndex: keyIndex,
		Checksum: generateChecksum(value),
		Internal: internal,
	}, nil
}

// ApplyOutput merges a freshly notified output into the address output set
// and adjusts the balance accordingly. Outputs are keyed by outpoint, so
// replaying the same notification is a no-op.
func (a *Address) ApplyOutput(out Output) {
	if a.Outputs == nil {
		a.Outputs = map[string]Output{}
	}
	prev, known := a.Outputs[out.Key()]
	a.Outputs[out.Key()] = out

	if out.Spent {
		if known && !prev.Spent {
			if out.Amount > a.Balance {
				a.Balance = 0
			} else {
				a.Balance -= out.Amount
			}
		}
		return
	}
	if !known {
		a.Balance += out.Amount
	}
}

// availableBalance is the portion of the balance not already committed to a
// submitted but unconfirmed outgoing transfer referencing this address.
func (a *Address) availableBalance(account *Account) uint64 {
	var pending uint64
	for _, message := range account.Messages {
		if message.Incoming || message.IsConfirmed() {
			continue
		}
		if message.Address == a.Address && message.Value < 0 {
			pending += uint64(-message.Value)
		}
	}
	if pending > a.Balance {
		return 0
	}
	return a.Balance - pending
}

func generateChecksum(value string) string {
	digest := btcutil.Hash160([]byte(value))
	return hex.EncodeToString(digest[:checksumLength])
}
