package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestLicenseRepository_FindByKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "license_key", "domain", "is_active", "user_id", "user_no", "user_name", "activated_at", "created_at",
	}).AddRow(7, "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345", "shop.example.com", true, 42, "U-001", "Jamie", now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+licenseColumns+` FROM licenses WHERE license_key = $1`)).
		WithArgs("ABCDEFGHIJKLMNOPQRSTUVWXYZ012345").
		WillReturnRows(rows)

	repo := NewLicenseRepository(db)
	lic, err := repo.FindByKey(context.Background(), "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345")
	require.NoError(t, err)
	require.NotNil(t, lic)
	require.Equal(t, int64(7), lic.ID)
	require.NotNil(t, lic.Domain)
	require.Equal(t, "shop.example.com", *lic.Domain)
	require.NotNil(t, lic.UserID)
	require.Equal(t, int64(42), *lic.UserID)
	require.NotNil(t, lic.ActivatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepository_FindByKeyUnbound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "license_key", "domain", "is_active", "user_id", "user_no", "user_name", "activated_at", "created_at",
	}).AddRow(8, "FRESHKEYFRESHKEYFRESHKEYFRESHKEY", nil, true, nil, nil, nil, nil, time.Now().UTC())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+licenseColumns+` FROM licenses WHERE license_key = $1`)).
		WithArgs("FRESHKEYFRESHKEYFRESHKEYFRESHKEY").
		WillReturnRows(rows)

	repo := NewLicenseRepository(db)
	lic, err := repo.FindByKey(context.Background(), "FRESHKEYFRESHKEYFRESHKEYFRESHKEY")
	require.NoError(t, err)
	require.NotNil(t, lic)
	require.Nil(t, lic.Domain)
	require.Nil(t, lic.UserID)
	require.Nil(t, lic.ActivatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepository_FindByKeyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+licenseColumns+` FROM licenses WHERE license_key = $1`)).
		WithArgs("MISSING").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewLicenseRepository(db)
	lic, err := repo.FindByKey(context.Background(), "MISSING")
	require.NoError(t, err)
	require.Nil(t, lic)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepository_Activate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE licenses SET domain=$1, activated_at=CURRENT_TIMESTAMP WHERE license_key=$2 AND domain IS NULL`)).
		WithArgs("shop.example.com", "KEY-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewLicenseRepository(db)
	bound, err := repo.Activate(context.Background(), "KEY-1", "shop.example.com")
	require.NoError(t, err)
	require.True(t, bound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepository_ActivateAlreadyBound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE licenses SET domain=$1, activated_at=CURRENT_TIMESTAMP WHERE license_key=$2 AND domain IS NULL`)).
		WithArgs("other.example.com", "KEY-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewLicenseRepository(db)
	bound, err := repo.Activate(context.Background(), "KEY-1", "other.example.com")
	require.NoError(t, err)
	require.False(t, bound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepository_DeleteUnused(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM licenses WHERE license_key=$1 AND domain IS NULL`)).
		WithArgs("KEY-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewLicenseRepository(db)
	deleted, err := repo.DeleteUnused(context.Background(), "KEY-2")
	require.NoError(t, err)
	require.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepository_GetAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	periodEnd := now.Add(20 * 24 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "license_key", "domain", "is_active", "user_id", "user_no", "user_name", "activated_at", "created_at",
		"subscription_status", "subscription_current_period_end", "login_account",
	}).
		AddRow(1, "KEY-A", "a.example.com", true, 10, "U-010", "Robin", now, now, "active", periodEnd, "robin@example.com").
		AddRow(2, "KEY-B", nil, true, nil, nil, nil, nil, now, nil, nil, nil)

	mock.ExpectQuery("SELECT l.id, l.license_key, .+ FROM licenses l\\s+LEFT JOIN users u ON l.user_id = u.id").
		WillReturnRows(rows)

	repo := NewLicenseRepository(db)
	listings, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)

	require.NotNil(t, listings[0].SubscriptionStatus)
	require.Equal(t, "active", *listings[0].SubscriptionStatus)
	require.NotNil(t, listings[0].LoginAccount)
	require.Equal(t, "robin@example.com", *listings[0].LoginAccount)

	require.Nil(t, listings[1].Domain)
	require.Nil(t, listings[1].SubscriptionStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}
