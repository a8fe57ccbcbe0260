package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// memoryData is one consistent snapshot of the in-memory tables.
type memoryData struct {
	roots      map[string]*history.RootInstance
	rows       map[history.Kind]map[string]*history.Row
	byteArrays map[string]*history.ByteArray
	meterLogs  map[string]*history.TaskMeterLog
}

func newMemoryData() *memoryData {
	d := &memoryData{
		roots:      make(map[string]*history.RootInstance),
		rows:       make(map[history.Kind]map[string]*history.Row),
		byteArrays: make(map[string]*history.ByteArray),
		meterLogs:  make(map[string]*history.TaskMeterLog),
	}
	for _, k := range history.Kinds() {
		d.rows[k] = make(map[string]*history.Row)
	}
	return d
}

func (d *memoryData) clone() *memoryData {
	out := &memoryData{
		roots:      make(map[string]*history.RootInstance, len(d.roots)),
		rows:       make(map[history.Kind]map[string]*history.Row, len(d.rows)),
		byteArrays: make(map[string]*history.ByteArray, len(d.byteArrays)),
		meterLogs:  make(map[string]*history.TaskMeterLog, len(d.meterLogs)),
	}
	for id, r := range d.roots {
		out.roots[id] = r.Clone()
	}
	for k, table := range d.rows {
		t := make(map[string]*history.Row, len(table))
		for id, r := range table {
			t[id] = r.Clone()
		}
		out.rows[k] = t
	}
	for id, ba := range d.byteArrays {
		out.byteArrays[id] = ba.Clone()
	}
	for id, l := range d.meterLogs {
		c := *l
		out.meterLogs[id] = &c
	}
	return out
}

// MemoryStore implements Store with in-memory maps.
// Transactions are serialized and work on a private copy that replaces the
// committed state on success. It is intended for tests and single-node
// development setups.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

// InTx implements Store.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memoryTx{data: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Backend implements Store.
func (s *MemoryStore) Backend() string { return "memory" }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// memoryTx operates on the transaction's private snapshot.
type memoryTx struct {
	data *memoryData
}

func (t *memoryTx) table(kind history.Kind) (map[string]*history.Row, error) {
	table, ok := t.data.rows[kind]
	if !ok {
		return nil, history.NewStorageError("memory", "lookup", errUnknownKind(kind))
	}
	return table, nil
}

func (t *memoryTx) InsertRoot(_ context.Context, root *history.RootInstance) error {
	if _, exists := t.data.roots[root.ID]; exists {
		return history.NewStorageError("memory", "insert_root", errDuplicate("root instance", root.ID))
	}
	t.data.roots[root.ID] = root.Clone()
	return nil
}

func (t *memoryTx) GetRoot(_ context.Context, id string) (*history.RootInstance, error) {
	r, ok := t.data.roots[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return r.Clone(), nil
}

func (t *memoryTx) UpdateRootEnd(_ context.Context, id string, end time.Time) error {
	r, ok := t.data.roots[id]
	if !ok {
		return history.ErrNotFound
	}
	r.EndTime = &end
	return nil
}

func (t *memoryTx) Insert(_ context.Context, row *history.Row) error {
	table, err := t.table(row.Kind)
	if err != nil {
		return err
	}
	if _, exists := table[row.ID]; exists {
		return history.NewStorageError("memory", "insert", errDuplicate(string(row.Kind), row.ID))
	}
	row.Revision = 1
	table[row.ID] = row.Clone()
	return nil
}

func (t *memoryTx) Get(_ context.Context, kind history.Kind, id string) (*history.Row, error) {
	table, err := t.table(kind)
	if err != nil {
		return nil, err
	}
	r, ok := table[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return r.Clone(), nil
}

func (t *memoryTx) Update(_ context.Context, row *history.Row) error {
	table, err := t.table(row.Kind)
	if err != nil {
		return err
	}
	stored, ok := table[row.ID]
	if !ok || stored.Revision != row.Revision {
		return history.NewConflictError(row.Kind, row.ID, row.Revision)
	}
	updated := row.Clone()
	updated.CreateTime = stored.CreateTime
	updated.Revision = stored.Revision + 1
	table[row.ID] = updated
	row.Revision = updated.Revision
	return nil
}

func (t *memoryTx) ListByScope(_ context.Context, kind history.Kind, scope Scope) ([]*history.Row, error) {
	table, err := t.table(kind)
	if err != nil {
		return nil, err
	}
	var out []*history.Row
	for _, r := range table {
		if matchesScope(r, scope) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) InsertByteArray(_ context.Context, ba *history.ByteArray) error {
	if _, exists := t.data.byteArrays[ba.ID]; exists {
		return history.NewStorageError("memory", "insert_bytearray", errDuplicate("byte array", ba.ID))
	}
	ba.Revision = 1
	t.data.byteArrays[ba.ID] = ba.Clone()
	return nil
}

func (t *memoryTx) GetByteArray(_ context.Context, id string) (*history.ByteArray, error) {
	ba, ok := t.data.byteArrays[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return ba.Clone(), nil
}

func (t *memoryTx) UpdateByteArray(_ context.Context, ba *history.ByteArray) error {
	stored, ok := t.data.byteArrays[ba.ID]
	if !ok || stored.Revision != ba.Revision {
		return history.NewConflictError(history.KindByteArray, ba.ID, ba.Revision)
	}
	updated := ba.Clone()
	updated.CreateTime = stored.CreateTime
	updated.Revision = stored.Revision + 1
	t.data.byteArrays[ba.ID] = updated
	ba.Revision = updated.Revision
	return nil
}

func (t *memoryTx) DeleteByteArray(_ context.Context, id string) error {
	delete(t.data.byteArrays, id)
	return nil
}

func (t *memoryTx) UpdateRemovalTime(_ context.Context, kind history.Kind, scope Scope, removalTime time.Time, batchSize int) (int64, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	table, err := t.table(kind)
	if err != nil {
		return 0, err
	}

	var ids []string
	for id, r := range table {
		if r.RemovalTime == nil && matchesScope(r, scope) {
			ids = append(ids, id)
		}
	}
	ids = capSorted(ids, batchSize)

	for _, id := range ids {
		rt := removalTime
		table[id].RemovalTime = &rt
	}
	return int64(len(ids)), nil
}

func (t *memoryTx) UpdateByteArrayRemovalTime(_ context.Context, ownerKind history.Kind, scope Scope, removalTime time.Time, batchSize int) (int64, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	table, err := t.table(ownerKind)
	if err != nil {
		return 0, err
	}

	var ids []string
	for _, r := range table {
		if r.ByteArrayID == "" || !matchesScope(r, scope) {
			continue
		}
		if ba, ok := t.data.byteArrays[r.ByteArrayID]; ok && ba.RemovalTime == nil {
			ids = append(ids, ba.ID)
		}
	}
	ids = capSorted(ids, batchSize)

	for _, id := range ids {
		rt := removalTime
		t.data.byteArrays[id].RemovalTime = &rt
	}
	return int64(len(ids)), nil
}

type expiredRow struct {
	id          string
	removalTime time.Time
}

// expired returns the expired rows of kind in removal time then id order.
func (t *memoryTx) expired(kind history.Kind, params CleanupParams) ([]expiredRow, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	times, err := t.removalTimes(kind)
	if err != nil {
		return nil, err
	}

	var out []expiredRow
	for id, rt := range times {
		if rt == nil || rt.After(params.Now) || !params.InMinuteWindow(*rt) {
			continue
		}
		out = append(out, expiredRow{id: id, removalTime: *rt})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.removalTime.Equal(b.removalTime) {
			return a.removalTime.Before(b.removalTime)
		}
		return a.id < b.id
	})
	return out, nil
}

// removalTimes maps the ids of kind's rows, or of the byte arrays, to their
// removal times.
func (t *memoryTx) removalTimes(kind history.Kind) (map[string]*time.Time, error) {
	if kind == history.KindByteArray {
		out := make(map[string]*time.Time, len(t.data.byteArrays))
		for id, ba := range t.data.byteArrays {
			out[id] = ba.RemovalTime
		}
		return out, nil
	}
	table, err := t.table(kind)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*time.Time, len(table))
	for id, r := range table {
		out[id] = r.RemovalTime
	}
	return out, nil
}

func (t *memoryTx) SelectExpired(_ context.Context, kind history.Kind, params CleanupParams) ([]string, error) {
	expired, err := t.expired(kind, params)
	if err != nil {
		return nil, err
	}
	if params.BatchSize > 0 && len(expired) > params.BatchSize {
		expired = expired[:params.BatchSize]
	}

	ids := make([]string, len(expired))
	for i, r := range expired {
		ids[i] = r.id
	}
	return ids, nil
}

func (t *memoryTx) CountExpired(_ context.Context, kind history.Kind, params CleanupParams) (int64, error) {
	expired, err := t.expired(kind, params)
	if err != nil {
		return 0, err
	}
	return int64(len(expired)), nil
}

func (t *memoryTx) Count(_ context.Context, kind history.Kind) (int64, error) {
	times, err := t.removalTimes(kind)
	if err != nil {
		return 0, err
	}
	return int64(len(times)), nil
}

func (t *memoryTx) SelectIDsByBatch(_ context.Context, kind history.Kind, batchIDs []string) ([]string, error) {
	table, err := t.table(kind)
	if err != nil {
		return nil, err
	}
	wanted := toSet(batchIDs)

	var ids []string
	for id, r := range table {
		if r.BatchID != "" && wanted[r.BatchID] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *memoryTx) DeleteByteArraysOf(_ context.Context, ownerKind history.Kind, ids []string) (int64, error) {
	table, err := t.table(ownerKind)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, id := range ids {
		r, ok := table[id]
		if !ok || r.ByteArrayID == "" {
			continue
		}
		if _, ok := t.data.byteArrays[r.ByteArrayID]; ok {
			delete(t.data.byteArrays, r.ByteArrayID)
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) DeleteByIDs(_ context.Context, kind history.Kind, ids []string) (int64, error) {
	if kind == history.KindByteArray {
		var n int64
		for _, id := range ids {
			if _, ok := t.data.byteArrays[id]; ok {
				delete(t.data.byteArrays, id)
				n++
			}
		}
		return n, nil
	}
	table, err := t.table(kind)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, id := range ids {
		if _, ok := table[id]; ok {
			delete(table, id)
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) InsertTaskMeterLog(_ context.Context, log *history.TaskMeterLog) error {
	if _, exists := t.data.meterLogs[log.ID]; exists {
		return history.NewStorageError("memory", "insert_meter_log", errDuplicate("task meter log", log.ID))
	}
	c := *log
	t.data.meterLogs[log.ID] = &c
	return nil
}

func (t *memoryTx) DeleteTaskMeterLogs(_ context.Context, params CleanupParams) (int64, error) {
	candidates, err := t.expiredMeterLogs(params)
	if err != nil {
		return 0, err
	}
	if params.BatchSize > 0 && len(candidates) > params.BatchSize {
		candidates = candidates[:params.BatchSize]
	}

	for _, l := range candidates {
		delete(t.data.meterLogs, l.ID)
	}
	return int64(len(candidates)), nil
}

func (t *memoryTx) CountExpiredTaskMeterLogs(_ context.Context, params CleanupParams) (int64, error) {
	candidates, err := t.expiredMeterLogs(params)
	if err != nil {
		return 0, err
	}
	return int64(len(candidates)), nil
}

// expiredMeterLogs returns the task meter logs before params.Now within the
// minute window, oldest first.
func (t *memoryTx) expiredMeterLogs(params CleanupParams) ([]*history.TaskMeterLog, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var candidates []*history.TaskMeterLog
	for _, l := range t.data.meterLogs {
		if l.Timestamp.Before(params.Now) && params.InMinuteWindow(l.Timestamp) {
			candidates = append(candidates, l)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
	return candidates, nil
}

func (t *memoryTx) CountTaskMeterLogs(_ context.Context) (int64, error) {
	return int64(len(t.data.meterLogs)), nil
}

func matchesScope(r *history.Row, scope Scope) bool {
	switch scope.By {
	case ByRootProcessInstance:
		return r.RootProcessInstanceID == scope.ID
	case ByProcessInstance:
		return r.ProcessInstanceID == scope.ID
	case ByBatch:
		return r.BatchID == scope.ID
	case ByRootDecisionInstance:
		return r.RootDecisionInstanceID == scope.ID
	default:
		return false
	}
}

func capSorted(ids []string, batchSize int) []string {
	sort.Strings(ids)
	if batchSize > 0 && len(ids) > batchSize {
		return ids[:batchSize]
	}
	return ids
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
