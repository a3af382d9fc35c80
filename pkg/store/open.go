package store

import (
	"fmt"

	"github.com/docsage/docsage/internal/types"
)

// Open builds the configured backend and loads its persisted state, so both
// the ingest and query processes start from the same data.
func Open(backend string, fileConfig FileIndexConfig, pgConfig PGIndexConfig) (types.VectorIndex, error) {
	var index types.VectorIndex
	var err error

	switch backend {
	case "file":
		index, err = NewFileIndexWithConfig(fileConfig)
	case "postgres":
		index, err = NewPGIndexWithConfig(pgConfig)
	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}
	if err != nil {
		return nil, err
	}

	if err := index.Load(); err != nil {
		index.Close()
		return nil, err
	}
	return index, nil
}
