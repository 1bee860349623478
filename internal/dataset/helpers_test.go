package dataset_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lingen1218/cfac/internal/dataset/datasettest"
)

// drop runs a schema-changing statement against a fixture file.
func drop(t *testing.T, path, stmt string) {
	t.Helper()
	db, err := sql.Open("sqlite", datasettest.DSN(path))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(stmt)
	require.NoError(t, err)
}
