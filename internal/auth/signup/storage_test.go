package signup

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTx(t *testing.T) (*sql.Tx, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	return tx, mock, func() { db.Close() }
}

func TestSavePendingSignupDuplicate(t *testing.T) {
	tx, mock, closeDB := newMockTx(t)
	defer closeDB()

	mock.ExpectExec(`INSERT INTO pending_signups`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "pending_signups_email_key"})

	storage := NewSignupPostgresStorage(nil)
	err := storage.SavePendingSignup(tx, &PendingSignup{Token: "tok", Email: "a@b.com"})
	assert.ErrorIs(t, err, ErrDuplicatePending)
}

func TestByTokenForUpdate(t *testing.T) {
	tx, mock, closeDB := newMockTx(t)
	defer closeDB()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"token", "email", "name", "password_hash", "role", "resume_ref",
		"otp_code", "otp_expires", "last_otp_sent",
		"verify_failures", "resend_count", "block_expires", "created_at",
	}).AddRow(
		"tok", "a@b.com", "Ada", "hash", "jobseeker", nil,
		"123456", now.Add(5*time.Minute), now,
		1, 2, nil, now,
	)
	mock.ExpectQuery(`(?s)SELECT .+ FROM pending_signups WHERE token = \$1 FOR UPDATE`).
		WithArgs("tok").
		WillReturnRows(rows)

	storage := NewSignupPostgresStorage(nil)
	pending, err := storage.ByTokenForUpdate(tx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", pending.Email)
	assert.Equal(t, "123456", pending.OtpCode)
	assert.Equal(t, 1, pending.VerifyFailures)
	assert.Equal(t, 2, pending.ResendCount)
	assert.False(t, pending.BlockExpires.Valid)
}

func TestUpdateProgress(t *testing.T) {
	tx, mock, closeDB := newMockTx(t)
	defer closeDB()

	now := time.Now()
	mock.ExpectExec(`UPDATE pending_signups SET`).
		WithArgs("tok", "654321", sqlmock.AnyArg(), sqlmock.AnyArg(), 2, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	storage := NewSignupPostgresStorage(nil)
	err := storage.UpdateProgress(tx, "tok", Progress{
		OtpCode:        "654321",
		OtpExpires:     now.Add(5 * time.Minute),
		LastOtpSent:    now,
		VerifyFailures: 2,
		ResendCount:    1,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpired(t *testing.T) {
	tx, mock, closeDB := newMockTx(t)
	defer closeDB()

	mock.ExpectExec(`DELETE FROM pending_signups`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	storage := NewSignupPostgresStorage(nil)
	n, err := storage.DeleteExpired(tx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestBlockedUntil(t *testing.T) {
	now := time.Now()
	p := &PendingSignup{}
	_, blocked := p.BlockedUntil(now)
	assert.False(t, blocked)

	p.BlockExpires = sql.NullTime{Time: now.Add(time.Minute), Valid: true}
	remaining, blocked := p.BlockedUntil(now)
	assert.True(t, blocked)
	assert.Equal(t, time.Minute, remaining)
}
