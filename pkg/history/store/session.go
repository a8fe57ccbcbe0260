package store

import (
	"context"
	"time"

	"mercator-hq/chronicle/pkg/history"
)

type cacheKey struct {
	kind history.Kind
	id   string
}

// Session wraps a Tx with a first-level cache of rows, byte arrays and root
// instances read or written during the transaction. Bulk statements bypass
// the cache and invalidate the affected kind, so a later Get always sees the
// bulk result.
type Session struct {
	Tx

	rows       map[cacheKey]*history.Row
	byteArrays map[string]*history.ByteArray
	roots      map[string]*history.RootInstance
}

// NewSession wraps tx.
func NewSession(tx Tx) *Session {
	return &Session{
		Tx:         tx,
		rows:       make(map[cacheKey]*history.Row),
		byteArrays: make(map[string]*history.ByteArray),
		roots:      make(map[string]*history.RootInstance),
	}
}

// WithSession returns tx itself when it already is a session and wraps it
// otherwise.
func WithSession(tx Tx) *Session {
	if s, ok := tx.(*Session); ok {
		return s
	}
	return NewSession(tx)
}

// GetRoot returns the cached root instance or loads it.
func (s *Session) GetRoot(ctx context.Context, id string) (*history.RootInstance, error) {
	if r, ok := s.roots[id]; ok {
		return r.Clone(), nil
	}
	r, err := s.Tx.GetRoot(ctx, id)
	if err != nil {
		return nil, err
	}
	s.roots[id] = r.Clone()
	return r, nil
}

// InsertRoot stores the root instance and caches it.
func (s *Session) InsertRoot(ctx context.Context, root *history.RootInstance) error {
	if err := s.Tx.InsertRoot(ctx, root); err != nil {
		return err
	}
	s.roots[root.ID] = root.Clone()
	return nil
}

// UpdateRootEnd records the end time and refreshes the cached copy.
func (s *Session) UpdateRootEnd(ctx context.Context, id string, end time.Time) error {
	if err := s.Tx.UpdateRootEnd(ctx, id, end); err != nil {
		return err
	}
	if r, ok := s.roots[id]; ok {
		r.EndTime = &end
	}
	return nil
}

// Get returns the cached row or loads it.
func (s *Session) Get(ctx context.Context, kind history.Kind, id string) (*history.Row, error) {
	key := cacheKey{kind, id}
	if r, ok := s.rows[key]; ok {
		return r.Clone(), nil
	}
	r, err := s.Tx.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	s.rows[key] = r.Clone()
	return r, nil
}

// Insert stores the row and caches it.
func (s *Session) Insert(ctx context.Context, row *history.Row) error {
	if err := s.Tx.Insert(ctx, row); err != nil {
		return err
	}
	s.rows[cacheKey{row.Kind, row.ID}] = row.Clone()
	return nil
}

// Update writes the row and refreshes the cached copy. A conflict evicts it.
func (s *Session) Update(ctx context.Context, row *history.Row) error {
	key := cacheKey{row.Kind, row.ID}
	if err := s.Tx.Update(ctx, row); err != nil {
		delete(s.rows, key)
		return err
	}
	s.rows[key] = row.Clone()
	return nil
}

// UpdateRemovalTime runs the bulk update and invalidates cached rows of kind.
func (s *Session) UpdateRemovalTime(ctx context.Context, kind history.Kind, scope Scope, removalTime time.Time, batchSize int) (int64, error) {
	s.invalidate(kind)
	return s.Tx.UpdateRemovalTime(ctx, kind, scope, removalTime, batchSize)
}

// DeleteByIDs deletes the rows and evicts them from the cache.
func (s *Session) DeleteByIDs(ctx context.Context, kind history.Kind, ids []string) (int64, error) {
	for _, id := range ids {
		if kind == history.KindByteArray {
			delete(s.byteArrays, id)
			continue
		}
		delete(s.rows, cacheKey{kind, id})
	}
	return s.Tx.DeleteByIDs(ctx, kind, ids)
}

// GetByteArray returns the cached byte array or loads it.
func (s *Session) GetByteArray(ctx context.Context, id string) (*history.ByteArray, error) {
	if ba, ok := s.byteArrays[id]; ok {
		return ba.Clone(), nil
	}
	ba, err := s.Tx.GetByteArray(ctx, id)
	if err != nil {
		return nil, err
	}
	s.byteArrays[id] = ba.Clone()
	return ba, nil
}

// InsertByteArray stores the byte array and caches it.
func (s *Session) InsertByteArray(ctx context.Context, ba *history.ByteArray) error {
	if err := s.Tx.InsertByteArray(ctx, ba); err != nil {
		return err
	}
	s.byteArrays[ba.ID] = ba.Clone()
	return nil
}

// UpdateByteArray writes the byte array and refreshes the cached copy. A
// conflict evicts it.
func (s *Session) UpdateByteArray(ctx context.Context, ba *history.ByteArray) error {
	if err := s.Tx.UpdateByteArray(ctx, ba); err != nil {
		delete(s.byteArrays, ba.ID)
		return err
	}
	s.byteArrays[ba.ID] = ba.Clone()
	return nil
}

// DeleteByteArray deletes the byte array and evicts it.
func (s *Session) DeleteByteArray(ctx context.Context, id string) error {
	delete(s.byteArrays, id)
	return s.Tx.DeleteByteArray(ctx, id)
}

// UpdateByteArrayRemovalTime runs the bulk update and drops every cached
// byte array.
func (s *Session) UpdateByteArrayRemovalTime(ctx context.Context, ownerKind history.Kind, scope Scope, removalTime time.Time, batchSize int) (int64, error) {
	clear(s.byteArrays)
	return s.Tx.UpdateByteArrayRemovalTime(ctx, ownerKind, scope, removalTime, batchSize)
}

// DeleteByteArraysOf deletes the owners' byte arrays and drops every cached
// byte array.
func (s *Session) DeleteByteArraysOf(ctx context.Context, ownerKind history.Kind, ids []string) (int64, error) {
	clear(s.byteArrays)
	return s.Tx.DeleteByteArraysOf(ctx, ownerKind, ids)
}

// Cached reports whether a row is currently held in the session cache.
// Byte arrays are looked up with history.KindByteArray.
func (s *Session) Cached(kind history.Kind, id string) bool {
	if kind == history.KindByteArray {
		_, ok := s.byteArrays[id]
		return ok
	}
	_, ok := s.rows[cacheKey{kind, id}]
	return ok
}

func (s *Session) invalidate(kind history.Kind) {
	for key := range s.rows {
		if key.kind == kind {
			delete(s.rows, key)
		}
	}
}
