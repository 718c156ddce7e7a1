// Package memory is the in-process TableStore used as the default backend
// and as the test double for the service layer.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"pettycash/internal/core"
	"pettycash/internal/store"
)

type Store struct {
	mu      sync.Mutex
	version int64
	rows    []core.Transaction
}

var _ store.TableStore = (*Store)(nil)

func New(seed []core.Transaction) *Store {
	s := &Store{}
	for _, t := range seed {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.rows = append(s.rows, t.Normalize())
	}
	return s
}

func (s *Store) LoadAll(_ context.Context) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]core.Transaction, len(s.rows))
	copy(rows, s.rows)
	return store.Snapshot{Version: strconv.FormatInt(s.version, 10), Rows: rows}, nil
}

func (s *Store) OverwriteAll(_ context.Context, snap store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Version != strconv.FormatInt(s.version, 10) {
		return fmt.Errorf("overwrite at version %s, store at %d: %w",
			snap.Version, s.version, store.ErrVersionMismatch)
	}
	rows := make([]core.Transaction, len(snap.Rows))
	copy(rows, snap.Rows)
	s.rows = rows
	s.version++
	return nil
}

func (s *Store) AppendRow(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.rows = append(s.rows, t.Normalize())
	s.version++
	return nil
}
