package database

import (
	"context"
	"database/sql"
)

// Sentence is one row of the sentences table: a single sentence or a
// paragraph-boundary marker (empty text, nil vector ref) within one
// processed object.
type Sentence struct {
	ObjectID  string
	Index     int
	Text      string
	VectorRef *string
}

// IsBlank reports whether the row is a paragraph-boundary marker.
func (s Sentence) IsBlank() bool {
	return s.Text == ""
}

// ReplaceSentences deletes all existing sentence rows for the object and
// inserts the given sequence in a single transaction. Re-running the same
// ingestion therefore leaves the table in an identical final state.
func (s *PostgresStore) ReplaceSentences(ctx context.Context, objectID string, rows []Sentence) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin sentence transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sentences WHERE object_id = $1`, objectID); err != nil {
		return storageErr("delete prior sentences", err)
	}

	const insert = `
		INSERT INTO sentences (object_id, sentence_index, sentence_text, vector_uuid)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return storageErr("prepare sentence insert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		var vectorRef sql.NullString
		if row.VectorRef != nil {
			vectorRef = sql.NullString{String: *row.VectorRef, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, objectID, row.Index, row.Text, vectorRef); err != nil {
			return storageErr("insert sentence", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit sentence transaction", err)
	}
	return nil
}

// GetSentenceWindow returns the sentence rows for the object whose index
// lies in [lo, hi], ordered by index. Negative lo is clamped to zero; an
// hi past the document's end simply yields fewer rows.
func (s *PostgresStore) GetSentenceWindow(ctx context.Context, objectID string, lo, hi int) ([]Sentence, error) {
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		return nil, nil
	}

	const query = `
		SELECT object_id, sentence_index, sentence_text, vector_uuid
		FROM sentences
		WHERE object_id = $1 AND sentence_index BETWEEN $2 AND $3
		ORDER BY sentence_index ASC
	`
	rows, err := s.DB.QueryContext(ctx, query, objectID, lo, hi)
	if err != nil {
		return nil, storageErr("fetch sentence window", err)
	}
	defer rows.Close()

	var out []Sentence
	for rows.Next() {
		var sent Sentence
		var vectorRef sql.NullString
		if err := rows.Scan(&sent.ObjectID, &sent.Index, &sent.Text, &vectorRef); err != nil {
			return nil, storageErr("scan sentence row", err)
		}
		if vectorRef.Valid {
			sent.VectorRef = &vectorRef.String
		}
		out = append(out, sent)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sentence rows", err)
	}
	return out, nil
}
