// Package bytearray manages the byte arrays referenced by historic records.
//
// There is no foreign-key cascade between an owner row and its byte array.
// The manager deletes the byte array explicitly before the reference is
// severed, and deletes never check the byte array revision: the byte array
// may already be gone when the owner is cleaned.
package bytearray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/store"
)

// Value is a binary payload to be stored alongside a record, such as a
// serialized variable value or an exception stack trace.
type Value struct {
	Name    string
	Content []byte
}

// Manager creates, replaces and deletes byte arrays for owner records.
type Manager struct {
	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// NewManager creates a manager that generates UUID byte array ids.
func NewManager() *Manager {
	return &Manager{
		newID:  uuid.NewString,
		now:    time.Now,
		logger: slog.Default().With("component", "history.bytearray"),
	}
}

// Attach creates a byte array for owner and sets the owner's reference. The
// byte array mirrors the owner's root process instance and removal time.
// The owner itself is not written; callers insert or update it afterwards.
func (m *Manager) Attach(ctx context.Context, tx store.Tx, owner history.HistoricRecord, v Value) (*history.ByteArray, error) {
	if !owner.Kind().OwnsByteArrays() {
		return nil, fmt.Errorf("%s records do not own byte arrays", owner.Kind())
	}

	ba := &history.ByteArray{
		ID:                    m.newID(),
		Name:                  v.Name,
		Content:               v.Content,
		OwnerKind:             owner.Kind(),
		RootProcessInstanceID: owner.RootProcessInstanceID(),
		RemovalTime:           copyTime(owner.RemovalTime()),
		CreateTime:            m.now().UTC(),
	}
	if err := tx.InsertByteArray(ctx, ba); err != nil {
		return nil, err
	}
	owner.Common().ByteArrayValueID = ba.ID

	m.logger.Debug("byte array attached",
		"kind", owner.Kind(),
		"owner_id", owner.RecordID(),
		"bytearray_id", ba.ID,
		"size", len(v.Content),
	)
	return ba, nil
}

// Replace changes the payload of a persisted owner. With keepObject the
// existing byte array is updated in place and keeps its id, root reference
// and removal time. Otherwise the old byte array is deleted and a new one
// attached, and the owner row is updated.
func (m *Manager) Replace(ctx context.Context, tx store.Tx, owner history.HistoricRecord, v Value, keepObject bool) error {
	id := owner.Common().ByteArrayValueID

	if keepObject && id != "" {
		ba, err := tx.GetByteArray(ctx, id)
		if err != nil && !errors.Is(err, history.ErrNotFound) {
			return err
		}
		if err == nil {
			ba.Content = v.Content
			if v.Name != "" {
				ba.Name = v.Name
			}
			return tx.UpdateByteArray(ctx, ba)
		}
	}

	if id != "" {
		if err := tx.DeleteByteArray(ctx, id); err != nil {
			return err
		}
		owner.Common().ByteArrayValueID = ""
	}
	if _, err := m.Attach(ctx, tx, owner, v); err != nil {
		return err
	}
	return store.UpdateRecord(ctx, tx, owner)
}

// Detach deletes the owner's byte array and clears the reference on the
// persisted owner.
func (m *Manager) Detach(ctx context.Context, tx store.Tx, owner history.HistoricRecord) error {
	id := owner.Common().ByteArrayValueID
	if id == "" {
		return nil
	}
	if err := tx.DeleteByteArray(ctx, id); err != nil {
		return err
	}
	owner.Common().ByteArrayValueID = ""
	return store.UpdateRecord(ctx, tx, owner)
}

// DeleteOwner deletes the owner's byte array, then the owner.
func (m *Manager) DeleteOwner(ctx context.Context, tx store.Tx, owner history.HistoricRecord) error {
	if id := owner.Common().ByteArrayValueID; id != "" {
		if err := tx.DeleteByteArray(ctx, id); err != nil {
			return err
		}
	}
	_, err := tx.DeleteByIDs(ctx, owner.Kind(), []string{owner.RecordID()})
	return err
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
