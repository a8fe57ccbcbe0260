package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/chronicle/pkg/history"
)

var base = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// forEachBackend runs fn against every backend available in the test
// environment. mattn/go-sqlite3 needs cgo and is skipped without it.
func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})

	for _, driver := range []string{DriverSQLite, DriverSQLite3} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			dsn := filepath.Join(t.TempDir(), "history.db")
			s, err := NewSQLStore(context.Background(), SQLConfig{Driver: driver, DSN: dsn})
			if err != nil {
				if driver == DriverSQLite3 {
					t.Skipf("sqlite3 driver unavailable: %v", err)
				}
				t.Fatalf("NewSQLStore(%s) failed: %v", driver, err)
			}
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

func tx(t *testing.T, s Store, fn func(tx Tx)) {
	t.Helper()
	require.NoError(t, s.InTx(context.Background(), func(tx Tx) error {
		fn(tx)
		return nil
	}))
}

func newRow(kind history.Kind, id, root string) *history.Row {
	return &history.Row{
		Kind:                  kind,
		ID:                    id,
		RootProcessInstanceID: root,
		ProcessInstanceID:     root,
		CreateTime:            base,
		Data:                  []byte(`{}`),
	}
}

func at(minutes int) *time.Time {
	t := base.Add(time.Duration(minutes) * time.Minute)
	return &t
}

func TestStore_InsertGetUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		tx(t, s, func(tx Tx) {
			row := newRow(history.KindTaskInstance, "task-1", "root-1")
			require.NoError(t, tx.Insert(ctx, row))
			assert.Equal(t, 1, row.Revision)
		})

		tx(t, s, func(tx Tx) {
			got, err := tx.Get(ctx, history.KindTaskInstance, "task-1")
			require.NoError(t, err)
			assert.Equal(t, "root-1", got.RootProcessInstanceID)
			assert.Nil(t, got.RemovalTime)
			assert.True(t, got.CreateTime.Equal(base))

			stale := got.Clone()
			got.RemovalTime = at(5)
			require.NoError(t, tx.Update(ctx, got))
			assert.Equal(t, 2, got.Revision)

			stale.RemovalTime = at(10)
			err = tx.Update(ctx, stale)
			var conflict *history.ConflictError
			require.True(t, errors.As(err, &conflict), "expected conflict, got %v", err)
			assert.True(t, history.IsRetryable(err))
		})

		tx(t, s, func(tx Tx) {
			got, err := tx.Get(ctx, history.KindTaskInstance, "task-1")
			require.NoError(t, err)
			assert.True(t, history.TimeEqual(got.RemovalTime, at(5)))

			_, err = tx.Get(ctx, history.KindTaskInstance, "missing")
			assert.ErrorIs(t, err, history.ErrNotFound)
		})
	})
}

func TestStore_UpdateOfDeletedRowConflicts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tx(t, s, func(tx Tx) {
			row := newRow(history.KindAuthorization, "auth-1", "root-1")
			require.NoError(t, tx.Insert(ctx, row))
			_, err := tx.DeleteByIDs(ctx, history.KindAuthorization, []string{"auth-1"})
			require.NoError(t, err)

			err = tx.Update(ctx, row)
			var conflict *history.ConflictError
			assert.True(t, errors.As(err, &conflict), "expected conflict, got %v", err)
		})
	})
}

func TestStore_RollbackOnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		boom := errors.New("boom")

		err := s.InTx(ctx, func(tx Tx) error {
			require.NoError(t, tx.Insert(ctx, newRow(history.KindComment, "c-1", "root-1")))
			return boom
		})
		require.ErrorIs(t, err, boom)

		tx(t, s, func(tx Tx) {
			_, err := tx.Get(ctx, history.KindComment, "c-1")
			assert.ErrorIs(t, err, history.ErrNotFound)
		})
	})
}

func TestStore_Roots(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tx(t, s, func(tx Tx) {
			require.NoError(t, tx.InsertRoot(ctx, &history.RootInstance{
				ID:                    "root-1",
				ProcessDefinitionKey:  "invoice",
				StartTime:             base,
				HistoryTimeToLiveDays: history.IntPtr(5),
			}))
			require.NoError(t, tx.UpdateRootEnd(ctx, "root-1", base.Add(time.Hour)))
			assert.ErrorIs(t, tx.UpdateRootEnd(ctx, "missing", base), history.ErrNotFound)
		})

		tx(t, s, func(tx Tx) {
			root, err := tx.GetRoot(ctx, "root-1")
			require.NoError(t, err)
			require.NotNil(t, root.EndTime)
			assert.True(t, root.EndTime.Equal(base.Add(time.Hour)))
			require.NotNil(t, root.HistoryTimeToLiveDays)
			assert.Equal(t, 5, *root.HistoryTimeToLiveDays)
		})
	})
}

func TestStore_UpdateRemovalTimeBatched(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		removal := *at(60 * 24)

		tx(t, s, func(tx Tx) {
			for i := 0; i < 5; i++ {
				require.NoError(t, tx.Insert(ctx, newRow(history.KindJobLog, fmt.Sprintf("job-%d", i), "root-1")))
			}
			require.NoError(t, tx.Insert(ctx, newRow(history.KindJobLog, "job-other", "root-2")))

			stamped := newRow(history.KindJobLog, "job-stamped", "root-1")
			stamped.RemovalTime = at(1)
			require.NoError(t, tx.Insert(ctx, stamped))
		})

		scope := Scope{By: ByRootProcessInstance, ID: "root-1"}
		var counts []int64
		for i := 0; i < 4; i++ {
			tx(t, s, func(tx Tx) {
				n, err := tx.UpdateRemovalTime(ctx, history.KindJobLog, scope, removal, 2)
				require.NoError(t, err)
				counts = append(counts, n)
			})
		}
		assert.Equal(t, []int64{2, 2, 1, 0}, counts)

		tx(t, s, func(tx Tx) {
			rows, err := tx.ListByScope(ctx, history.KindJobLog, scope)
			require.NoError(t, err)
			require.Len(t, rows, 6)
			for _, r := range rows {
				if r.ID == "job-stamped" {
					assert.True(t, history.TimeEqual(r.RemovalTime, at(1)), "existing removal time must be kept")
					continue
				}
				assert.True(t, history.TimeEqual(r.RemovalTime, &removal), "row %s", r.ID)
			}

			other, err := tx.Get(ctx, history.KindJobLog, "job-other")
			require.NoError(t, err)
			assert.Nil(t, other.RemovalTime)
		})
	})
}

func TestStore_UpdateRemovalTimeRejectsInvalidScope(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		err := s.InTx(context.Background(), func(tx Tx) error {
			_, err := tx.UpdateRemovalTime(context.Background(), history.KindJobLog, Scope{By: ByBatch}, base, 0)
			return err
		})
		assert.Error(t, err)
	})
}

func TestStore_UpdateByteArrayRemovalTime(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		removal := *at(90)

		tx(t, s, func(tx Tx) {
			for i := 0; i < 3; i++ {
				baID := fmt.Sprintf("ba-%d", i)
				require.NoError(t, tx.InsertByteArray(ctx, &history.ByteArray{
					ID: baID, Content: []byte("payload"), OwnerKind: history.KindVariableInstance,
					RootProcessInstanceID: "root-1", CreateTime: base,
				}))
				row := newRow(history.KindVariableInstance, fmt.Sprintf("var-%d", i), "root-1")
				row.ByteArrayID = baID
				require.NoError(t, tx.Insert(ctx, row))
			}
			require.NoError(t, tx.Insert(ctx, newRow(history.KindVariableInstance, "var-plain", "root-1")))
		})

		scope := Scope{By: ByRootProcessInstance, ID: "root-1"}
		tx(t, s, func(tx Tx) {
			n, err := tx.UpdateByteArrayRemovalTime(ctx, history.KindVariableInstance, scope, removal, 2)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)
			n, err = tx.UpdateByteArrayRemovalTime(ctx, history.KindVariableInstance, scope, removal, 2)
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)
			n, err = tx.UpdateByteArrayRemovalTime(ctx, history.KindVariableInstance, scope, removal, 2)
			require.NoError(t, err)
			assert.EqualValues(t, 0, n)
		})

		tx(t, s, func(tx Tx) {
			for i := 0; i < 3; i++ {
				ba, err := tx.GetByteArray(ctx, fmt.Sprintf("ba-%d", i))
				require.NoError(t, err)
				assert.True(t, history.TimeEqual(ba.RemovalTime, &removal))
				assert.Equal(t, []byte("payload"), ba.Content)
			}
		})
	})
}

func TestStore_SelectExpiredMinuteWindow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		tx(t, s, func(tx Tx) {
			for _, m := range []int{40, 5, 20, 65} {
				row := newRow(history.KindDetail, fmt.Sprintf("d-%02d", m), "root-1")
				row.RemovalTime = at(m)
				require.NoError(t, tx.Insert(ctx, row))
			}
			future := newRow(history.KindDetail, "d-future", "root-1")
			future.RemovalTime = at(60 * 48)
			require.NoError(t, tx.Insert(ctx, future))
			require.NoError(t, tx.Insert(ctx, newRow(history.KindDetail, "d-unset", "root-1")))
		})

		now := *at(120)
		tx(t, s, func(tx Tx) {
			all, err := tx.SelectExpired(ctx, history.KindDetail, CleanupParams{Now: now, MinuteFrom: 0, MinuteTo: 59})
			require.NoError(t, err)
			assert.Equal(t, []string{"d-05", "d-20", "d-40", "d-65"}, all)

			firstQuarter, err := tx.SelectExpired(ctx, history.KindDetail, CleanupParams{Now: now, MinuteFrom: 0, MinuteTo: 14})
			require.NoError(t, err)
			assert.Equal(t, []string{"d-05", "d-65"}, firstQuarter)

			capped, err := tx.SelectExpired(ctx, history.KindDetail, CleanupParams{Now: now, MinuteFrom: 0, MinuteTo: 59, BatchSize: 2})
			require.NoError(t, err)
			assert.Equal(t, []string{"d-05", "d-20"}, capped)

			_, err = tx.SelectExpired(ctx, history.KindDetail, CleanupParams{Now: now, MinuteFrom: 30, MinuteTo: 10})
			assert.Error(t, err)
		})
	})
}

func TestStore_DeleteWithByteArrays(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		tx(t, s, func(tx Tx) {
			require.NoError(t, tx.InsertByteArray(ctx, &history.ByteArray{ID: "ba-1", OwnerKind: history.KindAttachment, CreateTime: base}))
			row := newRow(history.KindAttachment, "att-1", "root-1")
			row.ByteArrayID = "ba-1"
			require.NoError(t, tx.Insert(ctx, row))
			require.NoError(t, tx.Insert(ctx, newRow(history.KindAttachment, "att-2", "root-1")))
		})

		tx(t, s, func(tx Tx) {
			n, err := tx.DeleteByteArraysOf(ctx, history.KindAttachment, []string{"att-1", "att-2", "att-missing"})
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			n, err = tx.DeleteByIDs(ctx, history.KindAttachment, []string{"att-1", "att-2", "att-missing"})
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			_, err = tx.GetByteArray(ctx, "ba-1")
			assert.ErrorIs(t, err, history.ErrNotFound)
			assert.NoError(t, tx.DeleteByteArray(ctx, "ba-1"), "deleting a missing byte array is not an error")
		})
	})
}

func TestStore_SelectIDsByBatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tx(t, s, func(tx Tx) {
			for i, batch := range []string{"b-1", "b-2", "b-1", ""} {
				row := newRow(history.KindIncident, fmt.Sprintf("inc-%d", i), "")
				row.BatchID = batch
				require.NoError(t, tx.Insert(ctx, row))
			}
			ids, err := tx.SelectIDsByBatch(ctx, history.KindIncident, []string{"b-1"})
			require.NoError(t, err)
			assert.Equal(t, []string{"inc-0", "inc-2"}, ids)
		})
	})
}

func TestStore_TaskMeterLogs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tx(t, s, func(tx Tx) {
			for i, m := range []int{5, 10, 25, 200} {
				require.NoError(t, tx.InsertTaskMeterLog(ctx, &history.TaskMeterLog{
					ID: fmt.Sprintf("tm-%d", i), AssigneeHash: int64(i), Timestamp: *at(m),
				}))
			}
		})

		cutoff := *at(100)
		tx(t, s, func(tx Tx) {
			n, err := tx.DeleteTaskMeterLogs(ctx, CleanupParams{Now: cutoff, MinuteFrom: 0, MinuteTo: 14})
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			n, err = tx.DeleteTaskMeterLogs(ctx, CleanupParams{Now: cutoff, MinuteFrom: 0, MinuteTo: 59, BatchSize: 10})
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			left, err := tx.CountTaskMeterLogs(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 1, left)
		})
	})
}

func TestStore_CountExpiredTaskMeterLogs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tx(t, s, func(tx Tx) {
			for i, m := range []int{5, 10, 25, 200} {
				require.NoError(t, tx.InsertTaskMeterLog(ctx, &history.TaskMeterLog{
					ID: fmt.Sprintf("tm-%d", i), AssigneeHash: int64(i), Timestamp: *at(m),
				}))
			}
		})

		cutoff := *at(100)
		tx(t, s, func(tx Tx) {
			n, err := tx.CountExpiredTaskMeterLogs(ctx, CleanupParams{Now: cutoff, MinuteFrom: 0, MinuteTo: 59, BatchSize: 1})
			require.NoError(t, err)
			assert.EqualValues(t, 3, n, "batch size must not cap the count")

			n, err = tx.CountExpiredTaskMeterLogs(ctx, CleanupParams{Now: cutoff, MinuteFrom: 0, MinuteTo: 14})
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			left, err := tx.CountTaskMeterLogs(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 4, left, "counting must not delete")
		})
	})
}

func TestSession_Cache(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx(t, s, func(tx Tx) {
		sess := NewSession(tx)
		require.NoError(t, sess.Insert(ctx, newRow(history.KindActivityInstance, "act-1", "root-1")))
		assert.True(t, sess.Cached(history.KindActivityInstance, "act-1"))

		_, err := sess.UpdateRemovalTime(ctx, history.KindActivityInstance, Scope{By: ByRootProcessInstance, ID: "root-1"}, *at(30), 0)
		require.NoError(t, err)
		assert.False(t, sess.Cached(history.KindActivityInstance, "act-1"), "bulk update must invalidate the cache")

		got, err := sess.Get(ctx, history.KindActivityInstance, "act-1")
		require.NoError(t, err)
		assert.True(t, history.TimeEqual(got.RemovalTime, at(30)))

		_, err = sess.DeleteByIDs(ctx, history.KindActivityInstance, []string{"act-1"})
		require.NoError(t, err)
		_, err = sess.Get(ctx, history.KindActivityInstance, "act-1")
		assert.ErrorIs(t, err, history.ErrNotFound)
	})
}

func TestStore_CountExpired(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		tx(t, s, func(tx Tx) {
			for _, m := range []int{40, 5, 20, 65} {
				row := newRow(history.KindTaskInstance, fmt.Sprintf("task-%02d", m), "root-1")
				row.RemovalTime = at(m)
				require.NoError(t, tx.Insert(ctx, row))
			}
			future := newRow(history.KindTaskInstance, "task-future", "root-1")
			future.RemovalTime = at(60 * 48)
			require.NoError(t, tx.Insert(ctx, future))
			require.NoError(t, tx.Insert(ctx, newRow(history.KindTaskInstance, "task-unset", "root-1")))
		})

		now := *at(120)
		tx(t, s, func(tx Tx) {
			n, err := tx.CountExpired(ctx, history.KindTaskInstance, CleanupParams{Now: now, MinuteFrom: 0, MinuteTo: 59, BatchSize: 2})
			require.NoError(t, err)
			assert.EqualValues(t, 4, n)

			n, err = tx.CountExpired(ctx, history.KindTaskInstance, CleanupParams{Now: now, MinuteFrom: 0, MinuteTo: 14})
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			total, err := tx.Count(ctx, history.KindTaskInstance)
			require.NoError(t, err)
			assert.EqualValues(t, 6, total)

			_, err = tx.CountExpired(ctx, history.Kind("unknown"), CleanupParams{Now: now, MinuteTo: 59})
			assert.Error(t, err)
			_, err = tx.Count(ctx, history.KindTaskMeterLog)
			assert.Error(t, err)
		})
	})
}

func TestStore_ExpiredByteArrays(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		tx(t, s, func(tx Tx) {
			// An expired byte array whose owner is already gone.
			require.NoError(t, tx.InsertByteArray(ctx, &history.ByteArray{
				ID: "ba-orphan", OwnerKind: history.KindVariableInstance, RemovalTime: at(10), CreateTime: base,
			}))
			require.NoError(t, tx.InsertByteArray(ctx, &history.ByteArray{
				ID: "ba-later", OwnerKind: history.KindVariableInstance, RemovalTime: at(60 * 48), CreateTime: base,
			}))
			require.NoError(t, tx.InsertByteArray(ctx, &history.ByteArray{
				ID: "ba-kept", OwnerKind: history.KindVariableInstance, CreateTime: base,
			}))
		})

		now := *at(120)
		tx(t, s, func(tx Tx) {
			ids, err := tx.SelectExpired(ctx, history.KindByteArray, CleanupParams{Now: now, MinuteFrom: 0, MinuteTo: 59})
			require.NoError(t, err)
			assert.Equal(t, []string{"ba-orphan"}, ids)

			none, err := tx.SelectExpired(ctx, history.KindByteArray, CleanupParams{Now: now, MinuteFrom: 30, MinuteTo: 44})
			require.NoError(t, err)
			assert.Empty(t, none)

			n, err := tx.CountExpired(ctx, history.KindByteArray, CleanupParams{Now: now, MinuteFrom: 0, MinuteTo: 59})
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			n, err = tx.DeleteByIDs(ctx, history.KindByteArray, []string{"ba-orphan", "ba-missing"})
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			total, err := tx.Count(ctx, history.KindByteArray)
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)
		})
	})
}

func TestSession_ByteArrayCache(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx(t, s, func(tx Tx) {
		sess := WithSession(tx)
		assert.Same(t, sess, WithSession(sess), "an existing session must be reused")

		require.NoError(t, sess.InsertByteArray(ctx, &history.ByteArray{ID: "ba-1", OwnerKind: history.KindVariableInstance, CreateTime: base}))
		row := newRow(history.KindVariableInstance, "var-1", "root-1")
		row.ByteArrayID = "ba-1"
		require.NoError(t, sess.Insert(ctx, row))
		assert.True(t, sess.Cached(history.KindByteArray, "ba-1"))

		_, err := sess.UpdateByteArrayRemovalTime(ctx, history.KindVariableInstance, Scope{By: ByRootProcessInstance, ID: "root-1"}, *at(30), 0)
		require.NoError(t, err)
		assert.False(t, sess.Cached(history.KindByteArray, "ba-1"), "bulk update must invalidate cached byte arrays")

		ba, err := sess.GetByteArray(ctx, "ba-1")
		require.NoError(t, err)
		assert.True(t, history.TimeEqual(ba.RemovalTime, at(30)))
		assert.True(t, sess.Cached(history.KindByteArray, "ba-1"))

		_, err = sess.DeleteByteArraysOf(ctx, history.KindVariableInstance, []string{"var-1"})
		require.NoError(t, err)
		assert.False(t, sess.Cached(history.KindByteArray, "ba-1"))
		_, err = sess.GetByteArray(ctx, "ba-1")
		assert.ErrorIs(t, err, history.ErrNotFound)
	})
}

type failingResult struct{}

func (failingResult) LastInsertId() (int64, error) { return 0, nil }
func (failingResult) RowsAffected() (int64, error) {
	return 0, errors.New("rows affected not supported")
}

func TestSQLTx_AffectedRowsError(t *testing.T) {
	tx := &sqlTx{s: &SQLStore{driver: DriverSQLite}}

	_, err := tx.affected("update_root", failingResult{})
	require.Error(t, err)
	var storageErr *history.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "update_root", storageErr.Operation)
}

func TestCleanupParams_MinuteFiltered(t *testing.T) {
	assert.False(t, CleanupParams{MinuteFrom: 0, MinuteTo: 59}.MinuteFiltered())
	assert.True(t, CleanupParams{MinuteFrom: 0, MinuteTo: 58}.MinuteFiltered())
	assert.True(t, CleanupParams{MinuteFrom: 7, MinuteTo: 13}.MinuteFiltered())
}
