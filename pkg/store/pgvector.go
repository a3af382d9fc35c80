package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
)

// PGIndexConfig configures the Postgres/pgvector backend.
type PGIndexConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PGIndex keeps the index in a pgvector table so ingestion can scale past
// what a single in-memory snapshot holds. Durability is the database's;
// Persist is a checkpoint no-op.
type PGIndex struct {
	config PGIndexConfig
	pool   *pgxpool.Pool
}

var _ types.VectorIndex = (*PGIndex)(nil)

func NewPGIndexWithConfig(config PGIndexConfig) (*PGIndex, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	idx := &PGIndex{
		config: config,
		pool:   pool,
	}

	if err := idx.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return idx, nil
}

func (pi *PGIndex) initialize() error {
	ctx := context.Background()

	_, err := pi.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			start_pos INTEGER NOT NULL,
			end_pos INTEGER NOT NULL,
			source_mod_time BIGINT NOT NULL,
			seq BIGSERIAL,
			embedding vector(%d)
		)`, pi.config.TableName, pi.config.VectorDim)

	_, err = pi.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		pi.config.TableName, pi.config.TableName)

	_, err = pi.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	createSourceIndex := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source)",
		pi.config.TableName, pi.config.TableName)

	_, err = pi.pool.Exec(ctx, createSourceIndex)
	if err != nil {
		return fmt.Errorf("failed to create source index: %v", err)
	}

	return nil
}

// Insert upserts entries inside one transaction so readers never observe a
// partially indexed document.
func (pi *PGIndex) Insert(entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		if len(e.Embedding) != pi.config.VectorDim {
			return fmt.Errorf("%w: entry %q has %d dimensions, index has %d",
				types.ErrDimensionMismatch, e.ID, len(e.Embedding), pi.config.VectorDim)
		}
	}

	ctx := context.Background()
	tx, err := pi.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source, chunk_index, content, start_pos, end_pos, source_mod_time, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			start_pos = EXCLUDED.start_pos,
			end_pos = EXCLUDED.end_pos,
			source_mod_time = EXCLUDED.source_mod_time,
			embedding = EXCLUDED.embedding`,
		pi.config.TableName)

	for _, e := range entries {
		_, err = tx.Exec(ctx, stmt,
			e.ID,
			e.Source,
			e.ChunkIndex,
			e.Content,
			e.Start,
			e.End,
			e.SourceModTime,
			pgvector.NewVector(e.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (pi *PGIndex) DeleteBySource(source string) (int, error) {
	tag, err := pi.pool.Exec(context.Background(),
		fmt.Sprintf("DELETE FROM %s WHERE source = $1", pi.config.TableName), source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete source entries: %v", err)
	}
	return int(tag.RowsAffected()), nil
}

// Search ranks by pgvector cosine distance; the returned score is the
// cosine similarity 1 - distance. Ties fall back to insertion order.
func (pi *PGIndex) Search(query []float32, topN int) ([]models.SearchResult, error) {
	if len(query) != pi.config.VectorDim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			types.ErrDimensionMismatch, len(query), pi.config.VectorDim)
	}
	if topN < 1 {
		return nil, fmt.Errorf("topN must be positive, got %d", topN)
	}

	stmt := fmt.Sprintf(`
		SELECT id, source, chunk_index, content, start_pos, end_pos, source_mod_time,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, seq
		LIMIT $2`,
		pi.config.TableName)

	rows, err := pi.pool.Query(context.Background(), stmt, pgvector.NewVector(query), topN)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %v", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var res models.SearchResult
		var score float64
		err := rows.Scan(
			&res.Entry.ID,
			&res.Entry.Source,
			&res.Entry.ChunkIndex,
			&res.Entry.Content,
			&res.Entry.Start,
			&res.Entry.End,
			&res.Entry.SourceModTime,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		res.Score = float32(score)
		results = append(results, res)
	}
	return results, rows.Err()
}

func (pi *PGIndex) Sources() (map[string]models.SourceStat, error) {
	stmt := fmt.Sprintf(
		"SELECT source, count(*), max(source_mod_time) FROM %s GROUP BY source",
		pi.config.TableName)

	rows, err := pi.pool.Query(context.Background(), stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %v", err)
	}
	defer rows.Close()

	stats := make(map[string]models.SourceStat)
	for rows.Next() {
		var source string
		var count int
		var modTime int64
		if err := rows.Scan(&source, &count, &modTime); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		stats[source] = models.SourceStat{Entries: count, ModTime: time.Unix(0, modTime)}
	}
	return stats, rows.Err()
}

func (pi *PGIndex) Count() (int, error) {
	var count int
	err := pi.pool.QueryRow(context.Background(),
		fmt.Sprintf("SELECT count(*) FROM %s", pi.config.TableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %v", err)
	}
	return count, nil
}

func (pi *PGIndex) Dimension() int {
	return pi.config.VectorDim
}

// Persist is a no-op: every Insert commits transactionally.
func (pi *PGIndex) Persist() error { return nil }

// Load verifies the stored vectors agree with the configured dimensionality.
func (pi *PGIndex) Load() error {
	var dim int
	err := pi.pool.QueryRow(context.Background(),
		fmt.Sprintf("SELECT vector_dims(embedding) FROM %s LIMIT 1", pi.config.TableName)).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stored dimension: %v", err)
	}
	if dim != pi.config.VectorDim {
		return fmt.Errorf("%w: table holds %d-dimensional vectors, config says %d",
			types.ErrDimensionMismatch, dim, pi.config.VectorDim)
	}
	return nil
}

func (pi *PGIndex) Close() {
	if pi.pool != nil {
		pi.pool.Close()
	}
}
