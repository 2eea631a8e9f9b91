package domain

import "context"

// MappingStore persists board mappings. Implementations enforce uniqueness of both
// ReferenceID and CounterID and report violations as ErrDuplicateReference / ErrDuplicateCounter.
type MappingStore interface {
	FindByReference(ctx context.Context, referenceID string) (*BoardMapping, error)
	FindByCounter(ctx context.Context, counterID string) (*BoardMapping, error)
	Insert(ctx context.Context, referenceID, counterID string) (*BoardMapping, error)
	Count(ctx context.Context) (int64, error)
}

// ReferenceLocker serializes work on a single reference ID.
// Lock blocks until the lock is held or ctx is done; the returned func releases it.
type ReferenceLocker interface {
	Lock(ctx context.Context, referenceID string) (unlock func(), err error)
}
