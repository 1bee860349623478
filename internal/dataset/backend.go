package dataset

import (
	"context"
	"fmt"
)

// Backend selects the Source implementation used for an opened dataset.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendKuzu   Backend = "kuzu"
)

// ParseBackend maps a configuration string onto a Backend. Empty means sqlite.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendSQLite:
		return BackendSQLite, nil
	case BackendKuzu:
		return BackendKuzu, nil
	default:
		return "", fmt.Errorf("unknown dataset backend %q", s)
	}
}

// OpenBackend opens the SQLite dataset at path and, for the kuzu backend,
// mirrors it into an in-memory graph before releasing the file.
func OpenBackend(ctx context.Context, backend Backend, path string) (Source, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	if backend != BackendKuzu {
		return src, nil
	}
	defer func() { _ = src.Close() }()
	mirror, err := mirrorKuzu(ctx, src)
	if err != nil {
		return nil, &DatasetOpenError{Path: path, Reason: ReasonUnreadable, Err: fmt.Errorf("mirror into kuzu: %w", err)}
	}
	return mirror, nil
}
