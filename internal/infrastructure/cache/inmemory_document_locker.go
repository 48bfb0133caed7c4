package cache

import (
	"context"
	"sync"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/google/uuid"
)

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// InMemoryDocumentLocker is a keyed mutex for single-instance deployments.
// Entries are dropped once no caller holds or waits for them.
type InMemoryDocumentLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedLock
}

// NewInMemoryDocumentLocker creates a new in-memory locker
func NewInMemoryDocumentLocker() *InMemoryDocumentLocker {
	return &InMemoryDocumentLocker{locks: make(map[uuid.UUID]*keyedLock)}
}

// Lock blocks until the document lock is held or ctx is done
func (l *InMemoryDocumentLocker) Lock(ctx context.Context, documentID uuid.UUID) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[documentID]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[documentID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(documentID, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(documentID, kl)
		})
	}, nil
}

func (l *InMemoryDocumentLocker) release(documentID uuid.UUID, kl *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, documentID)
	}
}

// Len returns the number of tracked documents
func (l *InMemoryDocumentLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var _ invoicing.DocumentLocker = (*InMemoryDocumentLocker)(nil)
