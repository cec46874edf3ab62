package persistence

import (
	"context"
	"database/sql"

	"ig-oauth-service/domain/model"
)

type PostAttemptRepository struct{ db *sql.DB }

func NewPostAttemptRepository(db *sql.DB) *PostAttemptRepository {
	return &PostAttemptRepository{db: db}
}

// Create appends one attempt row; attempts are never updated afterwards.
func (r *PostAttemptRepository) Create(ctx context.Context, a *model.PostAttempt) (*model.PostAttempt, error) {
	if a.QuotaTotal == 0 {
		a.QuotaTotal = 25
	}
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO post_attempts
			(license_id, facebook_page_id, image_url, wordpress_post_id, status,
			 error_code, error_message, quota_usage, quota_total, container_id, media_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING id, created_at`,
		a.LicenseID, a.FacebookPageID, a.ImageURL, a.WordpressPostID, a.Status,
		a.ErrorCode, a.ErrorMessage, a.QuotaUsage, a.QuotaTotal, a.ContainerID, a.MediaID)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostAttemptRepository) FindByLicenseID(ctx context.Context, licenseID int64, limit, offset int) ([]*model.PostAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, license_id, facebook_page_id, image_url, wordpress_post_id, status,
		        error_code, error_message, quota_usage, quota_total, container_id, media_id, created_at
		 FROM post_attempts
		 WHERE license_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		licenseID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	attempts := []*model.PostAttempt{}
	for rows.Next() {
		a := &model.PostAttempt{}
		var licID sql.NullInt64
		var imageURL, wpPostID, errCode, errMsg, containerID, mediaID sql.NullString
		var quotaUsage sql.NullInt64
		err := rows.Scan(&a.ID, &licID, &a.FacebookPageID, &imageURL, &wpPostID, &a.Status,
			&errCode, &errMsg, &quotaUsage, &a.QuotaTotal, &containerID, &mediaID, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		if licID.Valid {
			v := licID.Int64
			a.LicenseID = &v
		}
		if imageURL.Valid {
			v := imageURL.String
			a.ImageURL = &v
		}
		if wpPostID.Valid {
			v := wpPostID.String
			a.WordpressPostID = &v
		}
		if errCode.Valid {
			v := errCode.String
			a.ErrorCode = &v
		}
		if errMsg.Valid {
			v := errMsg.String
			a.ErrorMessage = &v
		}
		if quotaUsage.Valid {
			v := int(quotaUsage.Int64)
			a.QuotaUsage = &v
		}
		if containerID.Valid {
			v := containerID.String
			a.ContainerID = &v
		}
		if mediaID.Valid {
			v := mediaID.String
			a.MediaID = &v
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *PostAttemptRepository) Count(ctx context.Context, licenseID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM post_attempts WHERE license_id = $1`, licenseID).Scan(&n)
	return n, err
}

func (r *PostAttemptRepository) GetStats(ctx context.Context, licenseID int64, hours int) ([]*model.AttemptStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(MAX(quota_usage), 0)
		 FROM post_attempts
		 WHERE license_id = $1
		   AND created_at > NOW() - ($2 * INTERVAL '1 hour')
		 GROUP BY status`,
		licenseID, hours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := []*model.AttemptStats{}
	for rows.Next() {
		s := &model.AttemptStats{}
		if err := rows.Scan(&s.Status, &s.Count, &s.MaxQuotaUsage); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *PostAttemptRepository) GetRecentErrors(ctx context.Context, hours, limit int) ([]*model.AttemptErrorSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT error_code, error_message, COUNT(*), MAX(created_at)
		 FROM post_attempts
		 WHERE status != 'success'
		   AND created_at > NOW() - ($1 * INTERVAL '1 hour')
		 GROUP BY error_code, error_message
		 ORDER BY COUNT(*) DESC
		 LIMIT $2`,
		hours, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	summaries := []*model.AttemptErrorSummary{}
	for rows.Next() {
		s := &model.AttemptErrorSummary{}
		var code, msg sql.NullString
		if err := rows.Scan(&code, &msg, &s.Count, &s.LastOccurred); err != nil {
			return nil, err
		}
		if code.Valid {
			v := code.String
			s.ErrorCode = &v
		}
		if msg.Valid {
			v := msg.String
			s.ErrorMessage = &v
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
