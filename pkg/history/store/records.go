package store

import (
	"context"

	"mercator-hq/chronicle/pkg/history"
)

// InsertRecord encodes and inserts a typed record.
func InsertRecord(ctx context.Context, tx Tx, rec history.HistoricRecord) error {
	row, err := history.EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := tx.Insert(ctx, row); err != nil {
		return err
	}
	rec.Common().Revision = row.Revision
	return nil
}

// GetRecord loads and decodes a typed record.
func GetRecord(ctx context.Context, tx Tx, kind history.Kind, id string) (history.HistoricRecord, error) {
	row, err := tx.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return history.DecodeRecord(row)
}

// UpdateRecord writes a typed record with a revision check and advances the
// record's revision on success.
func UpdateRecord(ctx context.Context, tx Tx, rec history.HistoricRecord) error {
	row, err := history.EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := tx.Update(ctx, row); err != nil {
		return err
	}
	rec.Common().Revision = row.Revision
	return nil
}
