package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailledger/internal/model"
)

type SentEmailRepository struct {
	db *pgxpool.Pool
}

func NewSentEmailRepository(db *pgxpool.Pool) *SentEmailRepository {
	return &SentEmailRepository{db: db}
}

// Insert writes a new snapshot row and returns its id. Snapshots are
// insert-only; there is no update path.
func (r *SentEmailRepository) Insert(ctx context.Context, e *model.SentEmail) (int64, error) {
	query := `
        INSERT INTO sent_emails
            (site_id, title, email_subject, from_email, from_name, to_email,
             body, html_body, info, status, date_created, date_updated)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
        RETURNING id, date_created, date_updated
    `
	err := r.db.QueryRow(ctx, query,
		e.SiteID,
		e.Title,
		e.EmailSubject,
		e.FromEmail,
		e.FromName,
		e.ToEmail,
		e.Body,
		e.HTMLBody,
		e.Info,
		e.Status,
	).Scan(&e.ID, &e.DateCreated, &e.DateUpdated)
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

// FindByID returns one snapshot by id.
func (r *SentEmailRepository) FindByID(ctx context.Context, id int64) (*model.SentEmail, error) {
	query := `
        SELECT id, site_id, title, email_subject, from_email, from_name,
               to_email, body, html_body, info, status, date_created, date_updated
        FROM sent_emails
        WHERE id = $1
    `
	var e model.SentEmail
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.SiteID,
		&e.Title,
		&e.EmailSubject,
		&e.FromEmail,
		&e.FromName,
		&e.ToEmail,
		&e.Body,
		&e.HTMLBody,
		&e.Info,
		&e.Status,
		&e.DateCreated,
		&e.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns snapshots for a site, newest first.
func (r *SentEmailRepository) List(ctx context.Context, siteID, limit, offset int) ([]model.SentEmail, error) {
	query := `
        SELECT id, site_id, title, email_subject, from_email, from_name,
               to_email, body, html_body, info, status, date_created, date_updated
        FROM sent_emails
        WHERE site_id = $1
        ORDER BY date_created DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.db.Query(ctx, query, siteID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []model.SentEmail{}

	for rows.Next() {
		var e model.SentEmail
		err := rows.Scan(
			&e.ID,
			&e.SiteID,
			&e.Title,
			&e.EmailSubject,
			&e.FromEmail,
			&e.FromName,
			&e.ToEmail,
			&e.Body,
			&e.HTMLBody,
			&e.Info,
			&e.Status,
			&e.DateCreated,
			&e.DateUpdated,
		)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}

	return emails, rows.Err()
}

// IDsOverLimit returns the ids of rows beyond the newest `keep` rows for a
// site, across any status. These are the retention excess.
func (r *SentEmailRepository) IDsOverLimit(ctx context.Context, siteID, keep int) ([]int64, error) {
	query := `
        SELECT id
        FROM sent_emails
        WHERE site_id = $1
        ORDER BY date_created DESC
        OFFSET $2
    `
	rows, err := r.db.Query(ctx, query, siteID, keep)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DeleteByIDs removes the given rows and reports how many were deleted.
// An empty id set is a no-op.
func (r *SentEmailRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
        DELETE FROM sent_emails
        WHERE id = ANY($1)
    `
	tag, err := r.db.Exec(ctx, query, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
