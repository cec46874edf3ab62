package persistence

import (
	"context"
	"database/sql"

	"ig-oauth-service/domain/model"
)

const licenseColumns = `id, license_key, domain, is_active, user_id, user_no, user_name, activated_at, created_at`

type LicenseRepository struct{ db *sql.DB }

func NewLicenseRepository(db *sql.DB) *LicenseRepository { return &LicenseRepository{db: db} }

func scanLicense(row interface{ Scan(...interface{}) error }) (*model.License, error) {
	lic := &model.License{}
	var domain, userNo, userName sql.NullString
	var userID sql.NullInt64
	var activatedAt sql.NullTime
	err := row.Scan(&lic.ID, &lic.LicenseKey, &domain, &lic.IsActive, &userID, &userNo, &userName, &activatedAt, &lic.CreatedAt)
	if err != nil {
		return nil, err
	}
	if domain.Valid {
		v := domain.String
		lic.Domain = &v
	}
	if userID.Valid {
		v := userID.Int64
		lic.UserID = &v
	}
	if userNo.Valid {
		v := userNo.String
		lic.UserNo = &v
	}
	if userName.Valid {
		v := userName.String
		lic.UserName = &v
	}
	if activatedAt.Valid {
		v := activatedAt.Time
		lic.ActivatedAt = &v
	}
	return lic, nil
}

func (r *LicenseRepository) FindByKey(ctx context.Context, licenseKey string) (*model.License, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE license_key = $1`, licenseKey)
	lic, err := scanLicense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lic, err
}

func (r *LicenseRepository) FindByUserID(ctx context.Context, userID int64) (*model.License, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE user_id = $1`, userID)
	lic, err := scanLicense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lic, err
}

func (r *LicenseRepository) Create(ctx context.Context, licenseKey string, userNo, userName *string) (*model.License, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO licenses (license_key, user_no, user_name) VALUES ($1,$2,$3) RETURNING `+licenseColumns,
		licenseKey, userNo, userName)
	return scanLicense(row)
}

func (r *LicenseRepository) CreateForUser(ctx context.Context, licenseKey string, userID int64) (*model.License, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO licenses (license_key, user_id) VALUES ($1,$2) RETURNING `+licenseColumns,
		licenseKey, userID)
	return scanLicense(row)
}

// Activate binds the domain only when the license is still unbound. The
// WHERE domain IS NULL predicate makes concurrent first uses race-safe: only
// one caller observes rows affected.
func (r *LicenseRepository) Activate(ctx context.Context, licenseKey, domain string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE licenses SET domain=$1, activated_at=CURRENT_TIMESTAMP WHERE license_key=$2 AND domain IS NULL`,
		domain, licenseKey)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *LicenseRepository) UpdateUserInfo(ctx context.Context, licenseKey string, userNo, userName *string) (*model.License, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE licenses SET user_no=$1, user_name=$2 WHERE license_key=$3 RETURNING `+licenseColumns,
		userNo, userName, licenseKey)
	lic, err := scanLicense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lic, err
}

func (r *LicenseRepository) Deactivate(ctx context.Context, licenseKey string) (*model.License, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE licenses SET is_active=false WHERE license_key=$1 RETURNING `+licenseColumns, licenseKey)
	lic, err := scanLicense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lic, err
}

func (r *LicenseRepository) ResetDomain(ctx context.Context, licenseKey string) (*model.License, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE licenses SET domain=NULL, activated_at=NULL WHERE license_key=$1 RETURNING `+licenseColumns, licenseKey)
	lic, err := scanLicense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lic, err
}

// DeleteUnused removes a license only while no domain is bound to it.
func (r *LicenseRepository) DeleteUnused(ctx context.Context, licenseKey string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM licenses WHERE license_key=$1 AND domain IS NULL`, licenseKey)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *LicenseRepository) GetAll(ctx context.Context) ([]*model.LicenseListing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.license_key, l.domain, l.is_active, l.user_id, l.user_no, l.user_name, l.activated_at, l.created_at,
		        u.subscription_status, u.subscription_current_period_end, u.login_account
		 FROM licenses l
		 LEFT JOIN users u ON l.user_id = u.id
		 ORDER BY l.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	listings := []*model.LicenseListing{}
	for rows.Next() {
		l := &model.LicenseListing{}
		var domain, userNo, userName, subStatus, loginAccount sql.NullString
		var userID sql.NullInt64
		var activatedAt, periodEnd sql.NullTime
		err := rows.Scan(&l.ID, &l.LicenseKey, &domain, &l.IsActive, &userID, &userNo, &userName, &activatedAt, &l.CreatedAt,
			&subStatus, &periodEnd, &loginAccount)
		if err != nil {
			return nil, err
		}
		if domain.Valid {
			v := domain.String
			l.Domain = &v
		}
		if userID.Valid {
			v := userID.Int64
			l.UserID = &v
		}
		if userNo.Valid {
			v := userNo.String
			l.UserNo = &v
		}
		if userName.Valid {
			v := userName.String
			l.UserName = &v
		}
		if activatedAt.Valid {
			v := activatedAt.Time
			l.ActivatedAt = &v
		}
		if subStatus.Valid {
			v := subStatus.String
			l.SubscriptionStatus = &v
		}
		if periodEnd.Valid {
			v := periodEnd.Time
			l.SubscriptionPeriodEnd = &v
		}
		if loginAccount.Valid {
			v := loginAccount.String
			l.LoginAccount = &v
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
