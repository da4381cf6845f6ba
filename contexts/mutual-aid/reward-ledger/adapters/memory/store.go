package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"almoner/contexts/mutual-aid/reward-ledger/domain/entities"
	domainerrors "almoner/contexts/mutual-aid/reward-ledger/domain/errors"
	"almoner/contexts/mutual-aid/reward-ledger/ports"
)

// Store is the in-memory ledger plus a stub profile updater for tests. It
// also satisfies the Clock and IDGenerator ports.
type Store struct {
	mu          sync.RWMutex
	entries     map[string]entities.RewardEntry
	voteIndex   map[string]string
	credits     map[string]float64
	failCredits bool
}

func NewStore() *Store {
	return &Store{
		entries:   make(map[string]entities.RewardEntry),
		voteIndex: make(map[string]string),
		credits:   make(map[string]float64),
	}
}

// FailCredits makes ApplyCredit return an error, forcing entries into
// credit_pending. Test helper.
func (s *Store) FailCredits(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCredits = fail
}

// CreditedTotal reports the running profile balance for a validator.
func (s *Store) CreditedTotal(validatorID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credits[validatorID]
}

func (s *Store) InsertEntry(_ context.Context, entry entities.RewardEntry) (entities.RewardEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.voteIndex[entry.VoteID]; ok {
		return s.entries[existingID], true, nil
	}
	s.entries[entry.EntryID] = entry
	s.voteIndex[entry.VoteID] = entry.EntryID
	return entry, false, nil
}

func (s *Store) GetEntryByVote(_ context.Context, voteID string) (entities.RewardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entryID, ok := s.voteIndex[strings.TrimSpace(voteID)]
	if !ok {
		return entities.RewardEntry{}, domainerrors.ErrEntryNotFound
	}
	return s.entries[entryID], nil
}

func (s *Store) ListEntriesByValidator(_ context.Context, validatorID string, limit int) ([]entities.RewardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entities.RewardEntry, 0)
	for _, entry := range s.entries {
		if strings.EqualFold(entry.ValidatorID, validatorID) {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) ListPendingCredits(_ context.Context, limit int) ([]entities.RewardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]entities.RewardEntry, 0)
	for _, entry := range s.entries {
		if entry.Status == entities.EntryStatusCreditPending {
			pending = append(pending, entry)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkCredited(_ context.Context, entryID string, creditedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[strings.TrimSpace(entryID)]
	if !ok {
		return domainerrors.ErrEntryNotFound
	}
	if entry.Status == entities.EntryStatusCredited {
		return nil
	}
	creditedAt = creditedAt.UTC()
	entry.Status = entities.EntryStatusCredited
	entry.CreditedAt = &creditedAt
	s.entries[entry.EntryID] = entry
	return nil
}

func (s *Store) ApplyCredit(_ context.Context, validatorID string, _ string, amount float64, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCredits {
		return domainerrors.ErrLedgerPersistence
	}
	s.credits[validatorID] += amount
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.LedgerRepository = (*Store)(nil)
var _ ports.ValidatorProfileUpdater = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
