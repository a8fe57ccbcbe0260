package history

import (
	"encoding/json"
	"fmt"
)

// NewRecord returns an empty record of the given kind.
func NewRecord(kind Kind) (HistoricRecord, error) {
	switch kind {
	case KindActivityInstance:
		return &ActivityInstance{}, nil
	case KindTaskInstance:
		return &TaskInstance{}, nil
	case KindVariableInstance:
		return &VariableInstance{}, nil
	case KindDetail:
		return &Detail{}, nil
	case KindComment:
		return &Comment{}, nil
	case KindAttachment:
		return &Attachment{}, nil
	case KindIncident:
		return &Incident{}, nil
	case KindJobLog:
		return &JobLog{}, nil
	case KindExternalTaskLog:
		return &ExternalTaskLog{}, nil
	case KindIdentityLinkLog:
		return &IdentityLinkLog{}, nil
	case KindDecisionInstance:
		return &DecisionInstance{}, nil
	case KindDecisionInput:
		return &DecisionInput{}, nil
	case KindDecisionOutput:
		return &DecisionOutput{}, nil
	case KindAuthorization:
		return &Authorization{}, nil
	case KindBatch:
		return &Batch{}, nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

// EncodeRecord converts a record into its storage row.
func EncodeRecord(rec HistoricRecord) (*Row, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s: %w", rec.Kind(), rec.RecordID(), err)
	}

	b := rec.Common()
	row := &Row{
		Kind:                   rec.Kind(),
		ID:                     b.ID,
		RootProcessInstanceID:  b.RootProcessInstance,
		ProcessInstanceID:      b.ProcessInstanceID,
		BatchID:                b.BatchID,
		RootDecisionInstanceID: b.RootDecisionInstanceID,
		ByteArrayID:            b.ByteArrayValueID,
		CreateTime:             b.CreateTime,
		Revision:               b.Revision,
		Data:                   data,
	}
	if b.Removal != nil {
		t := *b.Removal
		row.RemovalTime = &t
	}
	return row, nil
}

// DecodeRecord converts a storage row back into its typed record.
func DecodeRecord(row *Row) (HistoricRecord, error) {
	rec, err := NewRecord(row.Kind)
	if err != nil {
		return nil, err
	}

	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s %s: %w", row.Kind, row.ID, err)
		}
	}

	b := rec.Common()
	b.ID = row.ID
	b.RootProcessInstance = row.RootProcessInstanceID
	b.ProcessInstanceID = row.ProcessInstanceID
	b.BatchID = row.BatchID
	b.RootDecisionInstanceID = row.RootDecisionInstanceID
	b.ByteArrayValueID = row.ByteArrayID
	b.CreateTime = row.CreateTime
	b.Revision = row.Revision
	b.SetRemovalTime(row.RemovalTime)
	return rec, nil
}
