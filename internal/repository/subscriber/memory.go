package subscriber

import (
	"context"
	"slices"
	"sync"

	domain "github.com/oshokin/help-alert/internal/domain/subscriber"
)

// MemoryDirectory keeps subscribers in registration order in process memory.
// Contents are lost on restart.
type MemoryDirectory struct {
	// records holds the subscribers in registration order.
	records []domain.Record
	// mu protects records.
	mu sync.RWMutex
}

// NewMemoryDirectory creates a directory pre-filled with records.
func NewMemoryDirectory(records ...domain.Record) *MemoryDirectory {
	d := &MemoryDirectory{
		records: make([]domain.Record, 0, len(records)),
	}

	for _, r := range records {
		d.records = append(d.records, *r.Clone())
	}

	return d
}

// ListAll returns a snapshot of every record.
func (d *MemoryDirectory) ListAll(_ context.Context) ([]domain.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]domain.Record, 0, len(d.records))
	for _, r := range d.records {
		result = append(result, *r.Clone())
	}

	return result, nil
}

// Upsert replaces the record in place or appends a new one.
func (d *MemoryDirectory) Upsert(
	_ context.Context,
	deviceName, address string,
	credentials []byte,
) (domain.UpsertResult, error) {
	if err := domain.Validate(address, credentials); err != nil {
		return "", err
	}

	record := domain.Record{
		DeviceName:  deviceName,
		Address:     address,
		Credentials: slices.Clone(credentials),
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if idx := d.indexOf(address); idx >= 0 {
		d.records[idx] = record
		return domain.Updated, nil
	}

	d.records = append(d.records, record)

	return domain.Created, nil
}

// FindByAddress returns domain.ErrNotFound for unknown addresses.
func (d *MemoryDirectory) FindByAddress(_ context.Context, address string) (*domain.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	idx := d.indexOf(address)
	if idx < 0 {
		return nil, domain.ErrNotFound
	}

	return d.records[idx].Clone(), nil
}

// DeleteByAddress removes the record if present.
func (d *MemoryDirectory) DeleteByAddress(_ context.Context, address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records = slices.DeleteFunc(d.records, func(r domain.Record) bool {
		return r.Address == address
	})

	return nil
}

// Close is a no-op.
func (d *MemoryDirectory) Close() error {
	return nil
}

// indexOf must be called with mu held.
func (d *MemoryDirectory) indexOf(address string) int {
	return slices.IndexFunc(d.records, func(r domain.Record) bool {
		return r.Address == address
	})
}
