package sqlc

import (
	"fmt"

	"github.com/yuku/respool/internal/store"
)

// ToRecord converts a row into a store.Record. It fails only when the row
// holds a status the schema check constraint should have rejected.
func (r ResourceRecord) ToRecord() (store.Record, error) {
	status, err := store.ParseStatus(r.Status)
	if err != nil {
		return store.Record{}, fmt.Errorf("record %s/%s: %w", r.GroupKey, r.ID, err)
	}
	return store.Record{
		GroupKey:  r.GroupKey,
		ID:        r.ID,
		Status:    status,
		Version:   uint64(r.Version),
		CreatedAt: r.CreatedAt.Time,
	}, nil
}

// ToRecords converts rows into records, preserving order.
func ToRecords(rows []ResourceRecord) ([]store.Record, error) {
	records := make([]store.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.ToRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}
