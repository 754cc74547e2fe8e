package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arborlead_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Attachment is the database model for an uploaded lead file.
type Attachment struct {
	ID          uuid.UUID `db:"id"`
	LeadID      uuid.UUID `db:"lead_id"`
	FileKey     string    `db:"file_key"`
	FileName    string    `db:"file_name"`
	ContentType string    `db:"content_type"`
	SizeBytes   int64     `db:"size_bytes"`
	CreatedAt   time.Time `db:"created_at"`
}

// CreateAttachment records an uploaded file against a lead.
func (r *Repository) CreateAttachment(ctx context.Context, att *Attachment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_attachments (id, lead_id, file_key, file_name, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		att.ID, att.LeadID, att.FileKey, att.FileName, att.ContentType, att.SizeBytes, att.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

// ListAttachments returns a lead's attachments, oldest first.
func (r *Repository) ListAttachments(ctx context.Context, leadID uuid.UUID) ([]Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, file_key, file_name, content_type, size_bytes, created_at
		FROM lead_attachments WHERE lead_id = $1 ORDER BY created_at`,
		leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var atts []Attachment
	for rows.Next() {
		var att Attachment
		if err := rows.Scan(&att.ID, &att.LeadID, &att.FileKey, &att.FileName,
			&att.ContentType, &att.SizeBytes, &att.CreatedAt); err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

// GetAttachment fetches a single attachment scoped to its lead.
func (r *Repository) GetAttachment(ctx context.Context, leadID, attachmentID uuid.UUID) (Attachment, error) {
	var att Attachment
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, file_key, file_name, content_type, size_bytes, created_at
		FROM lead_attachments WHERE id = $1 AND lead_id = $2`,
		attachmentID, leadID,
	).Scan(&att.ID, &att.LeadID, &att.FileKey, &att.FileName,
		&att.ContentType, &att.SizeBytes, &att.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attachment{}, apperr.NotFound("attachment not found")
	}
	return att, err
}
