package history

import "fmt"

// Kind identifies a historic record type. The set is closed.
type Kind string

const (
	KindActivityInstance Kind = "activity_instance"
	KindTaskInstance     Kind = "task_instance"
	KindVariableInstance Kind = "variable_instance"
	KindDetail           Kind = "detail"
	KindComment          Kind = "comment"
	KindAttachment       Kind = "attachment"
	KindIncident         Kind = "incident"
	KindJobLog           Kind = "job_log"
	KindExternalTaskLog  Kind = "external_task_log"
	KindIdentityLinkLog  Kind = "identity_link_log"
	KindDecisionInstance Kind = "decision_instance"
	KindDecisionInput    Kind = "decision_input"
	KindDecisionOutput   Kind = "decision_output"
	KindAuthorization    Kind = "authorization"
	KindBatch            Kind = "batch"
)

// KindTaskMeterLog is not a HistoricRecord. Task meter logs are raw usage
// counters without a removal time; they are cleaned by timestamp cutoff.
const KindTaskMeterLog Kind = "task_meter_log"

// KindByteArray names the byte array table. Byte arrays are not historic
// records but carry a removal time of their own and are swept by it.
const KindByteArray Kind = "bytearray"

// allKinds lists the record kinds in dependency order: kinds referencing
// other kinds come first so that deleting in this order never leaves
// dangling rows.
var allKinds = []Kind{
	KindDecisionInput,
	KindDecisionOutput,
	KindDecisionInstance,
	KindDetail,
	KindVariableInstance,
	KindComment,
	KindAttachment,
	KindIdentityLinkLog,
	KindTaskInstance,
	KindActivityInstance,
	KindIncident,
	KindJobLog,
	KindExternalTaskLog,
	KindAuthorization,
	KindBatch,
}

// byteArrayOwners are the kinds whose rows may reference a byte array.
var byteArrayOwners = map[Kind]bool{
	KindVariableInstance: true,
	KindDetail:           true,
	KindAttachment:       true,
	KindJobLog:           true,
	KindExternalTaskLog:  true,
	KindDecisionInput:    true,
	KindDecisionOutput:   true,
}

// Kinds returns all historic record kinds in dependency-safe delete order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ByteArrayOwnerKinds returns the kinds that may own a byte array, in
// dependency order.
func ByteArrayOwnerKinds() []Kind {
	var out []Kind
	for _, k := range allKinds {
		if byteArrayOwners[k] {
			out = append(out, k)
		}
	}
	return out
}

// OwnsByteArrays reports whether rows of this kind may reference a byte array.
func (k Kind) OwnsByteArrays() bool {
	return byteArrayOwners[k]
}

// Valid reports whether k is a known historic record kind.
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() && k != KindTaskMeterLog {
		return "", fmt.Errorf("unknown record kind %q", s)
	}
	return k, nil
}
