package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tanglenet/wallet-daemon/internal/core/domain"
	"github.com/tanglenet/wallet-daemon/internal/core/ports"
)

// CreateAccountOpts are the parameters for initialising a new account.
type CreateAccountOpts struct {
	Alias         string
	Mnemonic      string
	SignerType    domain.SignerType
	ClientOptions domain.ClientOptions
	StoragePath   string
	CreatedAt     time.Time
}

// AccountService drives the foreground account operations: initialisation,
// address generation and the explicit release-time flush.
type AccountService struct {
	accountRepository domain.AccountRepository
	signerSvc         ports.Signer
	nodeSvc           ports.NodeService
	locker            *domain.AddressLocker
	monitorSvc        *MonitorService
}

// NewAccountService returns an AccountService with all the needed
// collaborators.
func NewAccountService(
	accountRepository domain.AccountRepository,
	signerSvc ports.Signer,
	nodeSvc ports.NodeService,
	locker *domain.AddressLocker,
	monitorSvc *MonitorService,
) *AccountService {
	return &AccountService{
		accountRepository: accountRepository,
		signerSvc:         signerSvc,
		nodeSvc:           nodeSvc,
		locker:            locker,
		monitorSvc:        monitorSvc,
	}
}

// CreateAccount initialises a new account, registers it with the signing
// backend and persists it. Creating an account while the most recent one has
// no history yet fails with ErrLatestAccountEmpty.
func (s *AccountService) CreateAccount(
	ctx context.Context, opts CreateAccountOpts,
) (*domain.Account, error) {
	accounts, err := s.accountRepository.GetAllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		latest := accounts[len(accounts)-1]
		if len(latest.Messages) <= 0 && latest.TotalBalance() == 0 {
			return nil, domain.ErrLatestAccountEmpty
		}
	}

	alias := opts.Alias
	if len(alias) <= 0 {
		alias = fmt.Sprintf("Account %d", len(accounts))
	}
	createdAt := opts.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	account := &domain.Account{
		ID:            domain.NewIndexIdentifier(len(accounts)),
		SignerType:    opts.SignerType,
		Index:         len(accounts),
		Alias:         alias,
		CreatedAt:     createdAt,
		ClientOptions: opts.ClientOptions,
		StoragePath:   opts.StoragePath,
	}

	recordID, err := s.signerSvc.InitAccount(account, opts.Mnemonic)
	if err != nil {
		return nil, err
	}
	account.ID = domain.NewIDIdentifier(recordID)

	if err := s.accountRepository.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// GenerateAddress derives a fresh address for the account at the next key
// index, persists it and registers it with the monitor for balance tracking.
// The stored record is re-loaded under the account's address lock so that a
// concurrent reconciliation is never clobbered.
func (s *AccountService) GenerateAddress(
	ctx context.Context, account *domain.Account,
) (*domain.Address, error) {
	lock := s.locker.Get(account.ID)
	lock.Lock()

	address, err := s.generateAddress(ctx, account)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	// Monitor registration is best effort, the periodic sync acts as
	// fallback for addresses the monitor could not subscribe.
	if err := s.monitorSvc.MonitorAddressBalance(account, *address); err != nil {
		log.Debugf(
			"monitor subscription failed for address %s: %s", address.Address, err,
		)
	}
	return address, nil
}

// Release flushes any pending account changes to the storage. It is the
// explicit teardown step of an account value going out of use; wrappers
// invoking it implicitly must treat failures as best effort.
func (s *AccountService) Release(ctx context.Context, account *domain.Account) error {
	if !account.HasPendingChanges() {
		return nil
	}
	if err := s.accountRepository.SaveAccount(ctx, account); err != nil {
		return err
	}
	account.ClearPendingChanges()
	return nil
}

func (s *AccountService) generateAddress(
	ctx context.Context, account *domain.Account,
) (*domain.Address, error) {
	stored, err := s.accountRepository.GetAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	keyIndex := len(stored.Addresses)
	value, err := s.signerSvc.DeriveAddress(stored.ID, keyIndex, false)
	if err != nil {
		return nil, err
	}

	balances, err := s.nodeSvc.GetBalance(ctx, []string{value})
	if err != nil {
		return nil, err
	}

	address, err := domain.NewAddress(value, balances[value], keyIndex, false)
	if err != nil {
		return nil, err
	}

	stored.AppendAddresses(address)
	if err := s.accountRepository.SaveAccount(ctx, stored); err != nil {
		return nil, err
	}

	account.AppendAddresses(address)
	return &address, nil
}
