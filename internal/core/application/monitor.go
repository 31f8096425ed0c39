package application

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tanglenet/wallet-daemon/internal/core/domain"
	"github.com/tanglenet/wallet-daemon/internal/core/ports"
)

const defaultFetchTimeout = 15 * time.Second

// addressOutputPayload is the wire shape of a per-address output
// notification.
type addressOutputPayload struct {
	MessageID     string `json:"messageId"`
	TransactionID string `json:"transactionId"`
	OutputIndex   uint16 `json:"outputIndex"`
	IsSpent       bool   `json:"isSpent"`
	Output        struct {
		Type    int    `json:"type"`
		Amount  uint64 `json:"amount"`
		Address struct {
			Type    int    `json:"type"`
			Address string `json:"address"`
		} `json:"address"`
	} `json:"output"`
}

// messageMetadataPayload is the wire shape of a per-message metadata
// notification.
type messageMetadataPayload struct {
	MessageID            string  `json:"messageId"`
	LedgerInclusionState *string `json:"ledgerInclusionState"`
}

// MonitorOpts groups the dependencies of a MonitorService.
type MonitorOpts struct {
	AccountRepository domain.AccountRepository
	NodeService       ports.NodeService
	EventBus          *EventBus
	Locker            *domain.AddressLocker
	// FetchTimeout bounds the remote fetches performed while reconciling one
	// notification. Zero means the default of 15s.
	FetchTimeout time.Duration
	// FetchRateLimit throttles remote fetches across reconciliation tasks.
	// Zero means unlimited.
	FetchRateLimit rate.Limit
}

// MonitorService bridges push notifications from the remote ledger service
// into locked mutations of the local accounts.
//
// Every inbound notification is reconciled on its own goroutine: the account
// is re-loaded from storage under its address lock, mutated, persisted, and
// the resulting events are published on the bus. Failures inside a
// reconciliation task are logged and swallowed so that one malformed or
// transiently failing notification never blocks its siblings.
type MonitorService struct {
	accountRepository domain.AccountRepository
	nodeSvc           ports.NodeService
	eventBus          *EventBus
	locker            *domain.AddressLocker
	fetchTimeout      time.Duration
	rateLimiter       *rate.Limiter

	mtx    sync.Mutex
	topics map[domain.AccountIdentifier][]string
}

// NewMonitorService returns a MonitorService with all the needed
// collaborators.
func NewMonitorService(opts MonitorOpts) *MonitorService {
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	limit := opts.FetchRateLimit
	if limit <= 0 {
		limit = rate.Inf
	}

	return &MonitorService{
		accountRepository: opts.AccountRepository,
		nodeSvc:           opts.NodeService,
		eventBus:          opts.EventBus,
		locker:            opts.Locker,
		fetchTimeout:      fetchTimeout,
		rateLimiter:       rate.NewLimiter(limit, 1),
		topics:            map[domain.AccountIdentifier][]string{},
	}
}

// MonitorAddressBalance subscribes to the output topic of the given address
// and reconciles every notified output into the owning account.
func (m *MonitorService) MonitorAddressBalance(
	account *domain.Account, address domain.Address,
) error {
	accountID := account.ID
	addressValue := address.Address
	topic := fmt.Sprintf("addresses/%s/outputs", addressValue)

	if err := m.nodeSvc.Subscribe(topic, func(event ports.TopicEvent) {
		go func() {
			if err := m.processOutput(event.Payload, accountID, addressValue); err != nil {
				log.Warnf(
					"monitor: processing output notification for address %s: %s",
					addressValue, err,
				)
			}
		}()
	}); err != nil {
		return err
	}

	m.trackTopic(accountID, topic)
	return nil
}

// MonitorAccountAddressesBalance subscribes every existing address of the
// account.
func (m *MonitorService) MonitorAccountAddressesBalance(account *domain.Account) error {
	g := &errgroup.Group{}
	for i := range account.Addresses {
		address := account.Addresses[i]
		g.Go(func() error {
			return m.MonitorAddressBalance(account, address)
		})
	}
	return g.Wait()
}

// MonitorUnconfirmedMessages subscribes to the metadata topic of every
// unconfirmed message of the account.
func (m *MonitorService) MonitorUnconfirmedMessages(account *domain.Account) error {
	for _, message := range account.ListMessages(0, 0, domain.MessageTypeUnconfirmed) {
		if err := m.MonitorConfirmationStateChange(account, message.ID); err != nil {
			return err
		}
	}
	return nil
}

// MonitorConfirmationStateChange subscribes to the metadata topic of the
// given message and reconciles confirmation state flips.
func (m *MonitorService) MonitorConfirmationStateChange(
	account *domain.Account, messageID string,
) error {
	message := account.GetMessage(messageID)
	if message == nil {
		return domain.ErrMessageNotFound
	}

	accountID := account.ID
	knownState := message.Confirmed
	topic := fmt.Sprintf("messages/%s/metadata", messageID)

	if err := m.nodeSvc.Subscribe(topic, func(event ports.TopicEvent) {
		go func() {
			if err := m.processMetadata(event.Payload, accountID, messageID, knownState); err != nil {
				log.Warnf(
					"monitor: processing metadata notification for message %s: %s",
					messageID, err,
				)
			}
		}()
	}); err != nil {
		return err
	}

	m.trackTopic(accountID, topic)
	return nil
}

// Unsubscribe tears down all active topic subscriptions of the account.
func (m *MonitorService) Unsubscribe(account *domain.Account) error {
	m.mtx.Lock()
	topics := m.topics[account.ID]
	delete(m.topics, account.ID)
	m.mtx.Unlock()

	if len(topics) <= 0 {
		return nil
	}
	return m.nodeSvc.Unsubscribe(topics...)
}

func (m *MonitorService) processOutput(
	payload []byte, accountID domain.AccountIdentifier, addressValue string,
) error {
	parsed, err := parseOutputPayload(payload)
	if err != nil {
		return err
	}
	output := domain.Output{
		MessageID:     parsed.MessageID,
		TransactionID: parsed.TransactionID,
		Index:         parsed.OutputIndex,
		Amount:        parsed.Output.Amount,
		Spent:         parsed.IsSpent,
	}

	// The fetch happens before taking the account lock so that a hung remote
	// call cannot stall reconciliations of sibling notifications.
	fetched, err := m.fetchMessage(output.MessageID)
	if err != nil {
		return err
	}

	return m.mutateAccount(accountID, func(account *domain.Account) error {
		recordID, err := account.ID.RecordID()
		if err != nil {
			return err
		}

		address := findAddress(account, addressValue)
		if address == nil {
			return domain.ErrAddressNotFound
		}
		address.ApplyOutput(output)
		m.eventBus.EmitBalanceChange(recordID, *address, address.Balance)

		if message := account.GetMessage(output.MessageID); message != nil {
			message.SetConfirmed(true)
			return nil
		}

		message := *fetched
		message.ID = output.MessageID
		message.SetConfirmed(true)
		m.eventBus.EmitTransactionEvent(NewTransaction, recordID, message.ID)
		account.AppendMessages(&message)
		return nil
	})
}

func (m *MonitorService) processMetadata(
	payload []byte,
	accountID domain.AccountIdentifier,
	messageID string,
	knownState *bool,
) error {
	var metadata messageMetadataPayload
	if err := unmarshalPayload(payload, &metadata); err != nil {
		return err
	}
	if metadata.LedgerInclusionState == nil {
		return nil
	}

	confirmed := *metadata.LedgerInclusionState == "included"
	if knownState != nil && *knownState == confirmed {
		return nil
	}

	return m.mutateAccount(accountID, func(account *domain.Account) error {
		recordID, err := account.ID.RecordID()
		if err != nil {
			return err
		}

		message := account.GetMessage(messageID)
		if message == nil {
			return domain.ErrMessageNotFound
		}
		message.SetConfirmed(confirmed)
		m.eventBus.EmitConfirmationStateChange(recordID, messageID, confirmed)
		return nil
	})
}

// mutateAccount runs the locked read-modify-write cycle shared by all
// reconciliations: acquire the account's address lock, re-load the latest
// persisted record, apply the mutation, persist.
func (m *MonitorService) mutateAccount(
	id domain.AccountIdentifier, mutate func(account *domain.Account) error,
) error {
	lock := m.locker.Get(id)
	lock.Lock()
	defer lock.Unlock()

	ctx := context.Background()
	account, err := m.accountRepository.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(account); err != nil {
		return err
	}
	return m.accountRepository.SaveAccount(ctx, account)
}

func (m *MonitorService) fetchMessage(id string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.fetchTimeout)
	defer cancel()

	if err := m.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	return m.nodeSvc.GetMessage(ctx, id)
}

func (m *MonitorService) trackTopic(id domain.AccountIdentifier, topic string) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.topics[id] = append(m.topics[id], topic)
}

func parseOutputPayload(payload []byte) (*addressOutputPayload, error) {
	var parsed addressOutputPayload
	if err := unmarshalPayload(payload, &parsed); err != nil {
		return nil, err
	}
	if _, err := hex.DecodeString(parsed.MessageID); err != nil {
		return nil, fmt.Errorf("malformed message id in output payload: %w", err)
	}
	if _, err := hex.DecodeString(parsed.TransactionID); err != nil {
		return nil, fmt.Errorf("malformed transaction id in output payload: %w", err)
	}
	return &parsed, nil
}

func unmarshalPayload(payload []byte, target interface{}) error {
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("malformed notification payload: %w", err)
	}
	return nil
}

func findAddress(account *domain.Account, value string) *domain.Address {
	for i := range account.Addresses {
		if account.Addresses[i].Address == value {
			return &account.Addresses[i]
		}
	}
	return nil
}
