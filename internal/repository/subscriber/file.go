package subscriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/help-alert/internal/config"
	domain "github.com/oshokin/help-alert/internal/domain/subscriber"
)

// FileDirectory persists subscribers to a YAML file on disk.
// Every mutation rewrites the whole file through a temporary file and a rename,
// so readers never observe a half-written document.
type FileDirectory struct {
	// path is the filesystem location of the YAML file.
	path string
	// mu serialises read-modify-write cycles on the file.
	mu sync.Mutex
}

// fileDocument is the on-disk layout.
type fileDocument struct {
	Subscribers []fileRecord `yaml:"subscribers"`
}

// fileRecord is one subscriber as stored in YAML.
type fileRecord struct {
	DeviceName  string `yaml:"device_name"`
	Address     string `yaml:"address"`
	Credentials string `yaml:"credentials"`
}

// NewFileDirectory creates a directory that reads/writes YAML at the provided path.
// The file is created on the first write.
func NewFileDirectory(path string) *FileDirectory {
	return &FileDirectory{
		path: filepath.Clean(path),
	}
}

// ListAll reads every subscriber from disk.
func (d *FileDirectory) ListAll(_ context.Context) ([]domain.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, err := d.load()
	if err != nil {
		return nil, err
	}

	result := make([]domain.Record, 0, len(doc.Subscribers))
	for _, r := range doc.Subscribers {
		result = append(result, r.toDomain())
	}

	return result, nil
}

// Upsert registers or replaces the subscriber keyed by address.
func (d *FileDirectory) Upsert(
	_ context.Context,
	deviceName, address string,
	credentials []byte,
) (domain.UpsertResult, error) {
	if err := domain.Validate(address, credentials); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	doc, err := d.load()
	if err != nil {
		return "", err
	}

	record := fileRecord{
		DeviceName:  deviceName,
		Address:     address,
		Credentials: string(credentials),
	}

	result := domain.Created

	if idx := doc.indexOf(address); idx >= 0 {
		doc.Subscribers[idx] = record
		result = domain.Updated
	} else {
		doc.Subscribers = append(doc.Subscribers, record)
	}

	if err = d.save(doc); err != nil {
		return "", err
	}

	return result, nil
}

// FindByAddress returns domain.ErrNotFound for unknown addresses.
func (d *FileDirectory) FindByAddress(_ context.Context, address string) (*domain.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, err := d.load()
	if err != nil {
		return nil, err
	}

	idx := doc.indexOf(address)
	if idx < 0 {
		return nil, domain.ErrNotFound
	}

	record := doc.Subscribers[idx].toDomain()

	return &record, nil
}

// DeleteByAddress removes the subscriber; the file is left untouched when absent.
func (d *FileDirectory) DeleteByAddress(_ context.Context, address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, err := d.load()
	if err != nil {
		return err
	}

	if doc.indexOf(address) < 0 {
		return nil
	}

	doc.Subscribers = slices.DeleteFunc(doc.Subscribers, func(r fileRecord) bool {
		return r.Address == address
	})

	return d.save(doc)
}

// Close is a no-op; the file is not held open between calls.
func (d *FileDirectory) Close() error {
	return nil
}

// load reads the document. A missing file is an empty directory.
func (d *FileDirectory) load() (*fileDocument, error) {
	contents, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return new(fileDocument), nil
		}

		return nil, fmt.Errorf("%w: read subscriber file: %w", domain.ErrUnavailable, err)
	}

	var doc fileDocument
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode subscriber file: %w", domain.ErrUnavailable, err)
	}

	return &doc, nil
}

// save writes the document atomically.
func (d *FileDirectory) save(doc *fileDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode subscriber file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".help-alert-*.yaml")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", domain.ErrUnavailable, err)
	}

	tmpName := tmp.Name()

	// Removing after a successful rename fails harmlessly.
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write temp file: %w", domain.ErrUnavailable, err)
	}

	if err = tmp.Chmod(config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("%w: chmod temp file: %w", domain.ErrUnavailable, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp file: %w", domain.ErrUnavailable, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", domain.ErrUnavailable, err)
	}

	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("%w: replace subscriber file: %w", domain.ErrUnavailable, err)
	}

	return nil
}

func (doc *fileDocument) indexOf(address string) int {
	return slices.IndexFunc(doc.Subscribers, func(r fileRecord) bool {
		return r.Address == address
	})
}

func (r fileRecord) toDomain() domain.Record {
	return domain.Record{
		DeviceName:  r.DeviceName,
		Address:     r.Address,
		Credentials: []byte(r.Credentials),
	}
}
