package postgres

import (
	"context"

	"buyAlerts/internal/storage"
)

var (
	_ storage.StateStore = (*StateStore)(nil)
	_ storage.Storage    = (*Store)(nil)
)

// StateStore stores one named progress marker in the indexer_state table.
type StateStore struct {
	Store *Store
	Name  string
}

func (s *StateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *StateStore) Save(ctx context.Context, last uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, last)
}
