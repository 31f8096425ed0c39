package domain

import "time"

const (
	// MessageTypeAll disables the message type filter.
	MessageTypeAll MessageType = iota
	// MessageTypeReceived selects incoming messages.
	MessageTypeReceived
	// MessageTypeSent selects outgoing messages.
	MessageTypeSent
	// MessageTypeFailed selects messages that were not broadcasted.
	MessageTypeFailed
	// MessageTypeUnconfirmed selects messages not yet confirmed by the ledger.
	MessageTypeUnconfirmed
	// MessageTypeValue selects messages carrying a positive value.
	MessageTypeValue
)

// MessageType is the filter applied when listing an account's history.
type MessageType int

// Message is a transaction record of the account history. It is defined by
// the remote ledger service, the engine only reads it and flips its
// confirmation state. A negative Value denotes an outgoing spend.
type Message struct {
	ID          string    `json:"id"`
	Payload     string    `json:"payload"`
	Value       int64     `json:"value"`
	Incoming    bool      `json:"incoming"`
	Broadcasted bool      `json:"broadcasted"`
	Confirmed   *bool     `json:"confirmed,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Address     string    `json:"address"`
}

// IsConfirmed returns whether the message is known to be included in the
// ledger. A nil Confirmed field means the state is still unknown.
func (m *Message) IsConfirmed() bool {
	return m.Confirmed != nil && *m.Confirmed
}

// SetConfirmed updates the confirmation state.
func (m *Message) SetConfirmed(confirmed bool) {
	m.Confirmed = &confirmed
}

func (t MessageType) matches(m *Message) bool {
	switch t {
	case MessageTypeReceived:
		return m.Incoming
	case MessageTypeSent:
		return !m.Incoming
	case MessageTypeFailed:
		return !m.Broadcasted
	case MessageTypeUnconfirmed:
		return !m.IsConfirmed()
	case MessageTypeValue:
		return m.Value > 0
	default:
		return true
	}
}
