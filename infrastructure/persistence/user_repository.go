package persistence

import (
	"context"
	"database/sql"

	"ig-oauth-service/domain/model"
)

// UserRepository reads account rows maintained by the account/billing system.
// This core never writes to the users table.
type UserRepository struct{ db *sql.DB }

func NewUserRepository(db *sql.DB) *UserRepository { return &UserRepository{db: db} }

const userColumns = `id, login_account, stripe_customer_id, subscription_status, subscription_current_period_end, trial_end, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	u := &model.User{}
	var customerID, subStatus sql.NullString
	var periodEnd, trialEnd sql.NullTime
	err := row.Scan(&u.ID, &u.LoginAccount, &customerID, &subStatus, &periodEnd, &trialEnd, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		v := customerID.String
		u.StripeCustomerID = &v
	}
	if subStatus.Valid {
		v := subStatus.String
		u.SubscriptionStatus = &v
	}
	if periodEnd.Valid {
		v := periodEnd.Time
		u.SubscriptionPeriodEnd = &v
	}
	if trialEnd.Valid {
		v := trialEnd.Time
		u.TrialEnd = &v
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) FindByLoginAccount(ctx context.Context, loginAccount string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE login_account = $1`, loginAccount)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}
