package domain

import "sync"

// AddressLocker hands out one exclusive lock per account identifier, used to
// serialize every read-modify-write of an account's address set across
// concurrent reconciliation tasks and foreground operations.
//
// A process is expected to share a single instance, injected into the
// services that mutate accounts. Tests may construct isolated instances.
type AddressLocker struct {
	mtx   sync.Mutex
	locks map[AccountIdentifier]*sync.Mutex
}

// NewAddressLocker returns an empty lock registry.
func NewAddressLocker() *AddressLocker {
	return &AddressLocker{
		locks: map[AccountIdentifier]*sync.Mutex{},
	}
}

// Get returns the lock of the given account, creating it on first access.
// Concurrent first accesses for the same identifier observe the same lock
// instance.
func (l *AddressLocker) Get(id AccountIdentifier) *sync.Mutex {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	return lock
}
