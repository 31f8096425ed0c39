package domain

import "time"

// SignerType tells which signing backend owns an account's keys.
type SignerType string

const (
	// SignerTypeMnemonic is the software signer fed with a BIP-39 mnemonic.
	SignerTypeMnemonic SignerType = "mnemonic"
	// SignerTypeLedger is the hardware signer.
	SignerTypeLedger SignerType = "ledger"
)

// ClientOptions are the connection parameters of the remote ledger service an
// account synchronizes against. The engine only compares them for equality
// when tracking pending changes.
type ClientOptions struct {
	NodeURL string `json:"nodeUrl"`
	Network string `json:"network"`
}

// Account is one wallet account: its identity, the derived address set and
// the message history, mirrored from the remote ledger.
//
// Addresses hold at most one entry per key index. Messages may contain
// duplicates by payload, representing reattachments.
type Account struct {
	ID            AccountIdentifier `json:"id"`
	SignerType    SignerType        `json:"signerType"`
	Index         int               `json:"index"`
	Alias         string            `json:"alias"`
	CreatedAt     time.Time         `json:"createdAt"`
	Messages      []*Message        `json:"messages"`
	Addresses     []Address         `json:"addresses"`
	ClientOptions ClientOptions     `json:"clientOptions"`
	StoragePath   string            `json:"storagePath"`

	pendingChanges bool
}

// TotalBalance returns the sum of the balances of all account addresses.
func (a *Account) TotalBalance() uint64 {
	var total uint64
	for _, address := range a.Addresses {
		total += address.Balance
	}
	return total
}

// AvailableBalance returns the balance the user is allowed to spend, that is
// the total balance minus the value already committed to unconfirmed outgoing
// transfers.
func (a *Account) AvailableBalance() uint64 {
	var total uint64
	for i := range a.Addresses {
		total += a.Addresses[i].availableBalance(a)
	}
	return total
}

// LatestAddress returns the non-internal address with the highest key index,
// or nil if the account has no non-internal address.
func (a *Account) LatestAddress() *Address {
	var latest *Address
	for i := range a.Addresses {
		address := &a.Addresses[i]
		if address.Internal {
			continue
		}
		if latest == nil || address.KeyIndex > latest.KeyIndex {
			latest = address
		}
	}
	return latest
}

// ListMessages returns a view of the message history with reattachments
// collapsed to a single entry: a message sharing the payload of an already
// selected one replaces it, unless the earlier one is confirmed, in which
// case the reattachment is dropped. The optional type filter is applied after
// collapsing, then from entries are skipped and count entries are taken
// (0 = unbounded).
func (a *Account) ListMessages(count, from int, messageType MessageType) []*Message {
	collapsed := make([]*Message, 0, len(a.Messages))
	for _, message := range a.Messages {
		if original := indexByPayload(collapsed, message.Payload); original >= 0 {
			if collapsed[original].IsConfirmed() {
				continue
			}
			collapsed = append(collapsed[:original], collapsed[original+1:]...)
		}
		collapsed = append(collapsed, message)
	}

	messages := make([]*Message, 0, len(collapsed))
	for _, message := range collapsed {
		if messageType.matches(message) {
			messages = append(messages, message)
		}
	}

	if from >= len(messages) {
		return nil
	}
	messages = messages[from:]
	if count > 0 && count < len(messages) {
		messages = messages[:count]
	}
	return messages
}

// ListAddresses returns the account addresses matching the requested spent
// status. An address is spent if the history contains an outgoing spend
// targeting it.
func (a *Account) ListAddresses(unspent bool) []*Address {
	addresses := make([]*Address, 0, len(a.Addresses))
	for i := range a.Addresses {
		address := &a.Addresses[i]
		if a.isSpent(address.Address) != unspent {
			addresses = append(addresses, address)
		}
	}
	return addresses
}

// AppendAddresses upserts the given addresses by key index: entries matching
// an existing key index overwrite it in place, new ones are appended. The
// order of untouched entries is preserved.
func (a *Account) AppendAddresses(addresses ...Address) {
	for _, address := range addresses {
		if index := indexByKeyIndex(a.Addresses, address.KeyIndex); index >= 0 {
			a.Addresses[index] = address
			continue
		}
		a.Addresses = append(a.Addresses, address)
	}
}

// AppendMessages adds the given messages to the account history.
func (a *Account) AppendMessages(messages ...*Message) {
	a.Messages = append(a.Messages, messages...)
}

// GetMessage returns the history message with the given id, or nil.
func (a *Account) GetMessage(id string) *Message {
	for _, message := range a.Messages {
		if message.ID == id {
			return message
		}
	}
	return nil
}

// SetAlias updates the account alias, flagging pending changes only if the
// value actually changed.
func (a *Account) SetAlias(alias string) {
	if !a.pendingChanges {
		a.pendingChanges = alias != a.Alias
	}
	a.Alias = alias
}

// SetClientOptions updates the remote ledger connection parameters, flagging
// pending changes only if they actually changed.
func (a *Account) SetClientOptions(options ClientOptions) {
	if !a.pendingChanges {
		a.pendingChanges = options != a.ClientOptions
	}
	a.ClientOptions = options
}

// HasPendingChanges returns whether the account holds mutations not yet
// flushed to the storage.
func (a *Account) HasPendingChanges() bool {
	return a.pendingChanges
}

// ClearPendingChanges marks the account as flushed.
func (a *Account) ClearPendingChanges() {
	a.pendingChanges = false
}

func (a *Account) isSpent(address string) bool {
	for _, message := range a.Messages {
		if message.Value < 0 && message.Address == address {
			return true
		}
	}
	return false
}

func indexByPayload(messages []*Message, payload string) int {
	for i, message := range messages {
		if message.Payload == payload {
			return i
		}
	}
	return -1
}

func indexByKeyIndex(addresses []Address, keyIndex int) int {
	for i := range addresses {
		if addresses[i].KeyIndex == keyIndex {
			return i
		}
	}
	return -1
}
