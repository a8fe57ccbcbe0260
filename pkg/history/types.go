package history

import (
	"time"
)

// WildcardResourceID is the authorization resource id granting access to
// every resource of a type.
const WildcardResourceID = "*"

// HistoricRecord is implemented by every concrete historic record type.
// The retention engine only reads ownership and writes the removal time;
// all other fields are owned by the execution engine.
type HistoricRecord interface {
	// Kind returns the record kind.
	Kind() Kind

	// RecordID returns the record id.
	RecordID() string

	// RootProcessInstanceID returns the owning root process instance id,
	// or "" when the record has no process root.
	RootProcessInstanceID() string

	// SetRootProcessInstanceID sets the owning root process instance id.
	SetRootProcessInstanceID(id string)

	// RemovalTime returns the removal time, nil when not yet resolvable.
	RemovalTime() *time.Time

	// SetRemovalTime sets the removal time.
	SetRemovalTime(t *time.Time)

	// Common exposes the shared columns.
	Common() *Base
}

// Base holds the columns shared by all historic records. Concrete record
// types embed it.
type Base struct {
	ID                     string     `json:"-"`
	RootProcessInstance    string     `json:"-"`
	ProcessInstanceID      string     `json:"-"`
	BatchID                string     `json:"-"`
	RootDecisionInstanceID string     `json:"-"`
	ByteArrayValueID       string     `json:"-"`
	CreateTime             time.Time  `json:"-"`
	Removal                *time.Time `json:"-"`
	Revision               int        `json:"-"`
}

// RecordID implements HistoricRecord.
func (b *Base) RecordID() string { return b.ID }

// RootProcessInstanceID implements HistoricRecord.
func (b *Base) RootProcessInstanceID() string { return b.RootProcessInstance }

// SetRootProcessInstanceID implements HistoricRecord.
func (b *Base) SetRootProcessInstanceID(id string) { b.RootProcessInstance = id }

// RemovalTime implements HistoricRecord.
func (b *Base) RemovalTime() *time.Time { return b.Removal }

// SetRemovalTime implements HistoricRecord.
func (b *Base) SetRemovalTime(t *time.Time) {
	if t == nil {
		b.Removal = nil
		return
	}
	v := *t
	b.Removal = &v
}

// Common implements HistoricRecord.
func (b *Base) Common() *Base { return b }

// RootInstance is a root process instance as seen by the retention engine.
// It is owned by the execution engine and read-only here except for the
// end time reported through the end event.
type RootInstance struct {
	ID                    string
	ProcessDefinitionKey  string
	StartTime             time.Time
	EndTime               *time.Time
	HistoryTimeToLiveDays *int
}

// Ended reports whether the instance has an end time.
func (r *RootInstance) Ended() bool {
	return r.EndTime != nil
}

// ByteArray is a large binary payload referenced by exactly one owner row.
// Its root reference and removal time always mirror the owner's.
type ByteArray struct {
	ID                    string
	Name                  string
	Content               []byte
	OwnerKind             Kind
	RootProcessInstanceID string
	RemovalTime           *time.Time
	CreateTime            time.Time
	Revision              int
}

// TaskMeterLog is a raw task-assignee usage counter. It carries no removal
// time; cleanup deletes entries older than the task metrics TTL.
type TaskMeterLog struct {
	ID           string
	AssigneeHash int64
	Timestamp    time.Time
}

// Row is the storage representation of a historic record: the shared
// columns plus the kind-specific payload encoded as JSON.
type Row struct {
	Kind                   Kind
	ID                     string
	RootProcessInstanceID  string
	ProcessInstanceID      string
	BatchID                string
	RootDecisionInstanceID string
	ByteArrayID            string
	CreateTime             time.Time
	RemovalTime            *time.Time
	Revision               int
	Data                   []byte
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	out := *r
	if r.RemovalTime != nil {
		t := *r.RemovalTime
		out.RemovalTime = &t
	}
	if r.Data != nil {
		out.Data = append([]byte(nil), r.Data...)
	}
	return &out
}

// Clone returns a deep copy of the byte array.
func (b *ByteArray) Clone() *ByteArray {
	out := *b
	if b.RemovalTime != nil {
		t := *b.RemovalTime
		out.RemovalTime = &t
	}
	if b.Content != nil {
		out.Content = append([]byte(nil), b.Content...)
	}
	return &out
}

// Clone returns a deep copy of the root instance.
func (r *RootInstance) Clone() *RootInstance {
	out := *r
	if r.EndTime != nil {
		t := *r.EndTime
		out.EndTime = &t
	}
	if r.HistoryTimeToLiveDays != nil {
		d := *r.HistoryTimeToLiveDays
		out.HistoryTimeToLiveDays = &d
	}
	return &out
}

// TimeEqual reports whether two optional times denote the same instant.
func TimeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// IntPtr is a helper for optional day counts.
func IntPtr(v int) *int {
	return &v
}
