package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ig-oauth-service/domain/model"
)

const instagramAccountColumns = `id, facebook_user_id, access_token, token_expires_at, facebook_page_id, facebook_page_name, instagram_user_id, instagram_username, created_at, updated_at`

type InstagramAccountRepository struct{ db *sql.DB }

func NewInstagramAccountRepository(db *sql.DB) *InstagramAccountRepository {
	return &InstagramAccountRepository{db: db}
}

func scanInstagramAccount(row interface{ Scan(...interface{}) error }) (*model.InstagramAccount, error) {
	acc := &model.InstagramAccount{}
	err := row.Scan(
		&acc.ID, &acc.FacebookUserID, &acc.AccessToken, &acc.TokenExpiresAt,
		&acc.FacebookPageID, &acc.FacebookPageName, &acc.InstagramUserID,
		&acc.InstagramUsername, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (r *InstagramAccountRepository) FindByPageID(ctx context.Context, facebookPageID string) (*model.InstagramAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+instagramAccountColumns+` FROM instagram_users WHERE facebook_page_id = $1`,
		facebookPageID)
	acc, err := scanInstagramAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return acc, err
}

func (r *InstagramAccountRepository) FindByInstagramUserID(ctx context.Context, instagramUserID string) (*model.InstagramAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+instagramAccountColumns+` FROM instagram_users WHERE instagram_user_id = $1`,
		instagramUserID)
	acc, err := scanInstagramAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return acc, err
}

func (r *InstagramAccountRepository) FindByFacebookUserID(ctx context.Context, facebookUserID string) ([]*model.InstagramAccount, error) {
	return r.queryAccounts(ctx,
		`SELECT `+instagramAccountColumns+` FROM instagram_users WHERE facebook_user_id = $1 ORDER BY created_at DESC`,
		facebookUserID)
}

// Upsert inserts a new credential or refreshes the stored one, keyed by the
// Facebook page id.
func (r *InstagramAccountRepository) Upsert(ctx context.Context, acc *model.InstagramAccount) error {
	now := time.Now().UTC()
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now
	q := `INSERT INTO instagram_users (facebook_user_id, access_token, token_expires_at, facebook_page_id, facebook_page_name, instagram_user_id, instagram_username, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		  ON CONFLICT (facebook_page_id) DO UPDATE SET
			facebook_user_id=EXCLUDED.facebook_user_id,
			access_token=EXCLUDED.access_token,
			token_expires_at=EXCLUDED.token_expires_at,
			facebook_page_name=EXCLUDED.facebook_page_name,
			instagram_user_id=EXCLUDED.instagram_user_id,
			instagram_username=EXCLUDED.instagram_username,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q,
		acc.FacebookUserID, acc.AccessToken, acc.TokenExpiresAt, acc.FacebookPageID,
		acc.FacebookPageName, acc.InstagramUserID, acc.InstagramUsername,
		acc.CreatedAt, acc.UpdatedAt)
	return err
}

func (r *InstagramAccountRepository) UpdateToken(ctx context.Context, facebookPageID, accessToken string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE instagram_users SET access_token=$1, token_expires_at=$2, updated_at=NOW() WHERE facebook_page_id=$3`,
		accessToken, expiresAt, facebookPageID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no credential stored for page %s", facebookPageID)
	}
	return nil
}

func (r *InstagramAccountRepository) GetAll(ctx context.Context) ([]*model.InstagramAccount, error) {
	return r.queryAccounts(ctx,
		`SELECT `+instagramAccountColumns+` FROM instagram_users ORDER BY created_at DESC`)
}

// GetExpiring returns credentials expiring within the horizon but still valid.
func (r *InstagramAccountRepository) GetExpiring(ctx context.Context, withinDays int) ([]*model.InstagramAccount, error) {
	return r.queryAccounts(ctx,
		`SELECT `+instagramAccountColumns+` FROM instagram_users
		 WHERE token_expires_at < NOW() + ($1 * INTERVAL '1 day')
		   AND token_expires_at > NOW()
		 ORDER BY token_expires_at ASC`,
		withinDays)
}

func (r *InstagramAccountRepository) GetExpired(ctx context.Context) ([]*model.InstagramAccount, error) {
	return r.queryAccounts(ctx,
		`SELECT `+instagramAccountColumns+` FROM instagram_users WHERE token_expires_at < NOW() ORDER BY token_expires_at ASC`)
}

func (r *InstagramAccountRepository) queryAccounts(ctx context.Context, query string, args ...interface{}) ([]*model.InstagramAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := []*model.InstagramAccount{}
	for rows.Next() {
		acc, err := scanInstagramAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}
