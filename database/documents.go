package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "docqa/errors"
)

// Document is one row of the documents table. ProcessedObjectID is nil
// until the preprocessing step has produced a normalized text object.
type Document struct {
	ID                string
	Title             string
	Author            string
	ObjectID          *string
	ProcessedObjectID *string
}

// GetDocument fetches a document's metadata by identifier.
func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	const query = `
		SELECT id, title, COALESCE(author, ''), object_id, processed_object_id
		FROM documents WHERE id = $1
	`

	var doc Document
	var objectID, processedObjectID sql.NullString
	err := s.DB.QueryRowContext(ctx, query, documentID).Scan(
		&doc.ID, &doc.Title, &doc.Author, &objectID, &processedObjectID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: document %s", apperrors.ErrNotFound, documentID)
		}
		return nil, storageErr("fetch document", err)
	}

	if objectID.Valid {
		doc.ObjectID = &objectID.String
	}
	if processedObjectID.Valid {
		doc.ProcessedObjectID = &processedObjectID.String
	}
	return &doc, nil
}
