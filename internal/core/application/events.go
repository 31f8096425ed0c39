package application

import (
	"sync"

	"github.com/tanglenet/wallet-daemon/internal/core/domain"
)

const (
	// NewTransaction tags events for messages seen for the first time.
	NewTransaction TransactionEventType = iota
	// Reattachment tags events for resubmissions of an unconfirmed message.
	Reattachment
	// Broadcast tags events for messages handed to the network.
	Broadcast
)

// TransactionEventType is the kind of a transaction lifecycle event.
type TransactionEventType int

func (t TransactionEventType) String() string {
	switch t {
	case NewTransaction:
		return "NewTransaction"
	case Reattachment:
		return "Reattachment"
	case Broadcast:
		return "Broadcast"
	default:
		return "Unknown"
	}
}

// BalanceEvent notifies that a reconciled address balance changed.
type BalanceEvent struct {
	AccountID [32]byte
	Address   domain.Address
	Balance   uint64
}

// TransactionEvent notifies a transaction lifecycle change.
type TransactionEvent struct {
	AccountID [32]byte
	MessageID string
}

// ConfirmationEvent notifies that a message's confirmation state flipped.
type ConfirmationEvent struct {
	AccountID [32]byte
	MessageID string
	Confirmed bool
}

// BalanceHandler consumes balance events.
type BalanceHandler func(event BalanceEvent)

// TransactionHandler consumes transaction lifecycle events.
type TransactionHandler func(event TransactionEvent)

// ConfirmationHandler consumes confirmation state change events.
type ConfirmationHandler func(event ConfirmationEvent)

type transactionListener struct {
	eventType TransactionEventType
	handler   TransactionHandler
}

// EventBus holds the process-wide listener registries for balance,
// transaction and confirmation state change notifications.
//
// Emission invokes every matching listener synchronously, in registration
// order, on the emitting goroutine. Listeners must not re-acquire the
// account lock held by the emitting path.
type EventBus struct {
	mtx                   sync.Mutex
	balanceListeners      []BalanceHandler
	transactionListeners  []transactionListener
	confirmationListeners []ConfirmationHandler
}

// NewEventBus returns a bus with empty registries. A process is expected to
// share a single instance; tests may construct isolated ones.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// OnBalanceChange registers a listener for balance events.
func (b *EventBus) OnBalanceChange(handler BalanceHandler) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.balanceListeners = append(b.balanceListeners, handler)
}

// OnNewTransaction registers a listener for newly discovered transactions.
func (b *EventBus) OnNewTransaction(handler TransactionHandler) {
	b.addTransactionListener(NewTransaction, handler)
}

// OnReattachment registers a listener for transaction reattachments.
func (b *EventBus) OnReattachment(handler TransactionHandler) {
	b.addTransactionListener(Reattachment, handler)
}

// OnBroadcast registers a listener for transaction broadcasts.
func (b *EventBus) OnBroadcast(handler TransactionHandler) {
	b.addTransactionListener(Broadcast, handler)
}

// OnConfirmationStateChange registers a listener for confirmation state
// changes.
func (b *EventBus) OnConfirmationStateChange(handler ConfirmationHandler) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.confirmationListeners = append(b.confirmationListeners, handler)
}

// EmitBalanceChange fans a balance event out to the registered listeners.
func (b *EventBus) EmitBalanceChange(
	accountID [32]byte, address domain.Address, balance uint64,
) {
	b.mtx.Lock()
	listeners := make([]BalanceHandler, len(b.balanceListeners))
	copy(listeners, b.balanceListeners)
	b.mtx.Unlock()

	for _, listener := range listeners {
		listener(BalanceEvent{
			AccountID: accountID,
			Address:   address,
			Balance:   balance,
		})
	}
}

// EmitTransactionEvent fans a transaction event out to the listeners
// registered for the given kind.
func (b *EventBus) EmitTransactionEvent(
	eventType TransactionEventType, accountID [32]byte, messageID string,
) {
	b.mtx.Lock()
	listeners := make([]transactionListener, len(b.transactionListeners))
	copy(listeners, b.transactionListeners)
	b.mtx.Unlock()

	for _, listener := range listeners {
		if listener.eventType != eventType {
			continue
		}
		listener.handler(TransactionEvent{
			AccountID: accountID,
			MessageID: messageID,
		})
	}
}

// EmitConfirmationStateChange fans a confirmation state change out to the
// registered listeners.
func (b *EventBus) EmitConfirmationStateChange(
	accountID [32]byte, messageID string, confirmed bool,
) {
	b.mtx.Lock()
	listeners := make([]ConfirmationHandler, len(b.confirmationListeners))
	copy(listeners, b.confirmationListeners)
	b.mtx.Unlock()

	for _, listener := range listeners {
		listener(ConfirmationEvent{
			AccountID: accountID,
			MessageID: messageID,
			Confirmed: confirmed,
		})
	}
}

func (b *EventBus) addTransactionListener(
	eventType TransactionEventType, handler TransactionHandler,
) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.transactionListeners = append(b.transactionListeners, transactionListener{
		eventType: eventType,
		handler:   handler,
	})
}
