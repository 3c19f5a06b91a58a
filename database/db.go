package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"

	apperrors "docqa/errors"
)

type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	log.Println("Successfully connected to the database")
	return &PostgresStore{DB: db}, nil
}

// EnsureSchema creates the required tables if they do not already exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL DEFAULT '',
            author TEXT,
            object_id TEXT,
            processed_object_id TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS sentences (
            object_id TEXT NOT NULL,
            sentence_index INT NOT NULL,
            sentence_text TEXT NOT NULL,
            vector_uuid UUID,
            PRIMARY KEY (object_id, sentence_index)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_sentences_object_id ON sentences(object_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// storageErr tags a database failure with the storage sentinel so callers
// can map it to a 500-equivalent without inspecting driver errors.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperrors.ErrStorage, op, err)
}
