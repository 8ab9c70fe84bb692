package subscriber

import (
	"context"
	"errors"
	"slices"
)

// Record is a registered device eligible to receive alert messages.
type Record struct {
	// DeviceName is the display label chosen at registration.
	DeviceName string
	// Address is the unique delivery endpoint and the directory key.
	Address string
	// Credentials is passed to the push dispatcher verbatim.
	Credentials []byte
}

// Clone returns a copy of the record that does not share the credentials buffer.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	return &Record{
		DeviceName:  r.DeviceName,
		Address:     r.Address,
		Credentials: slices.Clone(r.Credentials),
	}
}

// UpsertResult tells whether Upsert inserted or replaced a record.
type UpsertResult string

const (
	// Created means the address was not registered before.
	Created UpsertResult = "created"
	// Updated means an existing registration was replaced.
	Updated UpsertResult = "updated"
)

var (
	// ErrNotFound is returned by FindByAddress when the address is not registered.
	ErrNotFound = errors.New("subscriber not found")
	// ErrUnavailable wraps every failure to reach the backing store.
	ErrUnavailable = errors.New("subscriber directory unavailable")
	// ErrInvalidRecord is returned when a record misses its address or credentials.
	ErrInvalidRecord = errors.New("invalid subscriber record")
)

// Directory is the durable store of subscribers keyed by delivery address.
type Directory interface {
	// ListAll returns every registered subscriber.
	ListAll(ctx context.Context) ([]Record, error)
	// Upsert registers the address or replaces its name and credentials.
	Upsert(ctx context.Context, deviceName, address string, credentials []byte) (UpsertResult, error)
	// FindByAddress returns ErrNotFound when the address is unknown.
	FindByAddress(ctx context.Context, address string) (*Record, error)
	// DeleteByAddress removes the record; deleting an unknown address is a no-op.
	DeleteByAddress(ctx context.Context, address string) error
}

// Validate checks the fields every backend requires.
func Validate(address string, credentials []byte) error {
	if address == "" {
		return errors.Join(ErrInvalidRecord, errors.New("address is required"))
	}

	if len(credentials) == 0 {
		return errors.Join(ErrInvalidRecord, errors.New("credentials are required"))
	}

	return nil
}

// Find returns the record with the given address from an already loaded list.
func Find(records []Record, address string) (Record, bool) {
	idx := slices.IndexFunc(records, func(r Record) bool {
		return r.Address == address
	})
	if idx < 0 {
		return Record{}, false
	}

	return records[idx], true
}
