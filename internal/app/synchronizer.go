package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/reactboard/internal/domain"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultLockTimeout  = 10 * time.Second
)

// SyncConfig holds the gating settings and timeouts of a Synchronizer.
type SyncConfig struct {
	Settings     domain.BoardSettings
	StoreTimeout time.Duration
	LockTimeout  time.Duration
}

// SyncRecorder receives the result of every handled snapshot. Implemented by the metrics adapter.
type SyncRecorder interface {
	ObserveOutcome(outcome domain.Outcome, duration time.Duration)
	ObserveFailure(kind string, duration time.Duration)
}

// Synchronizer applies reaction snapshots to the board. For each source message it creates
// the board entry once and edits it afterwards; creation runs under a per-message lock so
// concurrent events cannot publish two entries for the same message.
type Synchronizer struct {
	cfg       SyncConfig
	store     domain.MappingStore
	locker    domain.ReferenceLocker
	publisher domain.Publisher
	recorder  SyncRecorder
	clock     clockwork.Clock
}

// NewSynchronizer creates a Synchronizer. recorder may be nil.
func NewSynchronizer(cfg SyncConfig, store domain.MappingStore, locker domain.ReferenceLocker, publisher domain.Publisher, recorder SyncRecorder, clock clockwork.Clock) *Synchronizer {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	return &Synchronizer{
		cfg:       cfg,
		store:     store,
		locker:    locker,
		publisher: publisher,
		recorder:  recorder,
		clock:     clock,
	}
}

// Handle processes one snapshot. Ignored events return OutcomeSkipped with a nil error.
// Failures are returned as *domain.OperationFailedError and are not retried.
func (s *Synchronizer) Handle(ctx context.Context, snap domain.ReactionSnapshot) (domain.Outcome, error) {
	start := s.clock.Now()
	outcome, err := s.handle(ctx, snap)

	if s.recorder != nil {
		elapsed := s.clock.Since(start)
		if opErr, ok := errors.AsType[*domain.OperationFailedError](err); ok {
			s.recorder.ObserveFailure(opErr.KindLabel(), elapsed)
		} else if err == nil {
			s.recorder.ObserveOutcome(outcome, elapsed)
		}
	}
	return outcome, err
}

func (s *Synchronizer) handle(ctx context.Context, snap domain.ReactionSnapshot) (domain.Outcome, error) {
	if !s.accepts(snap) {
		return domain.OutcomeSkipped, nil
	}

	decision := Decide(snap.Tallies, s.cfg.Settings.Threshold)
	if !decision.ShouldPublish {
		return domain.OutcomeBelowThreshold, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	unlock, err := s.locker.Lock(lockCtx, snap.MessageID)
	cancel()
	if err != nil {
		return 0, failed(domain.ErrLockFailure, "acquire lock", snap.MessageID, err)
	}

	existing, err := s.findByReference(ctx, snap.MessageID)
	if err == nil {
		unlock()
		return s.edit(ctx, snap, existing, decision)
	}
	if !errors.Is(err, domain.ErrMappingNotFound) {
		unlock()
		return 0, failed(domain.ErrStoreFailure, "find mapping", snap.MessageID, err)
	}

	defer unlock()
	return s.create(ctx, snap, decision)
}

func (s *Synchronizer) accepts(snap domain.ReactionSnapshot) bool {
	if snap.GuildID != s.cfg.Settings.GuildID {
		return false
	}
	return snap.ChannelID != s.cfg.Settings.BoardChannelID
}

func (s *Synchronizer) edit(ctx context.Context, snap domain.ReactionSnapshot, mapping *domain.BoardMapping, decision domain.PublishDecision) (domain.Outcome, error) {
	if err := s.publisher.Edit(ctx, mapping.CounterID, decision.Summary, snap.Author); err != nil {
		return 0, failed(domain.ErrPublisherFailure, "edit entry", snap.MessageID, err)
	}

	slog.DebugContext(ctx, "Board entry updated", "message_id", snap.MessageID, "counter_id", mapping.CounterID, "summary", decision.Summary)
	return domain.OutcomeEdited, nil
}

func (s *Synchronizer) create(ctx context.Context, snap domain.ReactionSnapshot, decision domain.PublishDecision) (domain.Outcome, error) {
	entryID, err := s.publisher.Create(ctx, decision.Summary, snap.Author)
	if err != nil {
		return 0, failed(domain.ErrPublisherFailure, "create entry", snap.MessageID, err)
	}

	if err := s.publisher.CrossReference(ctx, s.cfg.Settings.BoardChannelID, snap.GuildID, snap.ChannelID, snap.MessageID); err != nil {
		slog.WarnContext(ctx, "Cross reference failed", "message_id", snap.MessageID, "counter_id", entryID, "error", err)
	}

	mapping, err := s.insert(ctx, snap.MessageID, entryID)
	if errors.Is(err, domain.ErrDuplicateReference) {
		slog.WarnContext(ctx, "Mapping created concurrently, editing existing entry instead", "message_id", snap.MessageID, "orphan_counter_id", entryID)
		existing, findErr := s.findByReference(ctx, snap.MessageID)
		if findErr != nil {
			return 0, failed(domain.ErrStoreFailure, "refetch mapping", snap.MessageID, findErr)
		}
		return s.edit(ctx, snap, existing, decision)
	}
	if err != nil {
		return 0, failed(domain.ErrStoreFailure, "insert mapping", snap.MessageID, err)
	}

	slog.InfoContext(ctx, "Board entry created", "message_id", snap.MessageID, "counter_id", mapping.CounterID, "summary", decision.Summary)
	return domain.OutcomeCreated, nil
}

func (s *Synchronizer) findByReference(ctx context.Context, referenceID string) (*domain.BoardMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.FindByReference(ctx, referenceID)
}

func (s *Synchronizer) insert(ctx context.Context, referenceID, counterID string) (*domain.BoardMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.Insert(ctx, referenceID, counterID)
}

func failed(kind error, op, referenceID string, cause error) *domain.OperationFailedError {
	return &domain.OperationFailedError{Kind: kind, Op: op, ReferenceID: referenceID, Cause: cause}
}
