package signup

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicatePending signals a concurrent signup for the same email won the
// race; the unique index on pending_signups.email enforces the one-per-email
// invariant.
var ErrDuplicatePending = errors.New("pending signup already exists for email")

type Saver interface {
	SavePendingSignup(tx *sql.Tx, pending *PendingSignup) error
}

type Updater interface {
	UpdateProgress(tx *sql.Tx, token string, progress Progress) error
}

type Provider interface {
	ByEmailForUpdate(tx *sql.Tx, email string) (*PendingSignup, error)
	ByTokenForUpdate(tx *sql.Tx, token string) (*PendingSignup, error)
}

type Deleter interface {
	Delete(tx *sql.Tx, token string) error
	DeleteExpired(tx *sql.Tx) (int64, error)
}

type PostgresStorage struct {
	db *sql.DB
}

func NewSignupPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

const pendingColumns = `token, email, name, password_hash, role, resume_ref,
	       otp_code, otp_expires, last_otp_sent,
	       verify_failures, resend_count, block_expires, created_at`

func scanPending(row *sql.Row) (*PendingSignup, error) {
	pending := &PendingSignup{}
	err := row.Scan(
		&pending.Token, &pending.Email, &pending.Name, &pending.PasswordHash,
		&pending.Role, &pending.ResumeRef,
		&pending.OtpCode, &pending.OtpExpires, &pending.LastOtpSent,
		&pending.VerifyFailures, &pending.ResendCount, &pending.BlockExpires,
		&pending.CreatedAt)
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *PostgresStorage) SavePendingSignup(tx *sql.Tx, pending *PendingSignup) error {
	_, err := tx.Exec(`
		INSERT INTO pending_signups (token, email, name, password_hash, role, resume_ref,
		                             otp_code, otp_expires, last_otp_sent,
		                             verify_failures, resend_count, block_expires, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		pending.Token, pending.Email, pending.Name, pending.PasswordHash,
		pending.Role, pending.ResumeRef,
		pending.OtpCode, pending.OtpExpires, pending.LastOtpSent,
		pending.VerifyFailures, pending.ResendCount, pending.BlockExpires,
		pending.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicatePending
	}
	return err
}

func (r *PostgresStorage) UpdateProgress(tx *sql.Tx, token string, progress Progress) error {
	_, err := tx.Exec(`
		UPDATE pending_signups SET
		otp_code = $2, otp_expires = $3, last_otp_sent = $4,
		verify_failures = $5, resend_count = $6, block_expires = $7
		WHERE token = $1`,
		token, progress.OtpCode, progress.OtpExpires, progress.LastOtpSent,
		progress.VerifyFailures, progress.ResendCount, progress.BlockExpires)
	return err
}

func (r *PostgresStorage) ByEmailForUpdate(tx *sql.Tx, email string) (*PendingSignup, error) {
	return scanPending(tx.QueryRow(
		`SELECT `+pendingColumns+` FROM pending_signups WHERE email = $1 FOR UPDATE`, email))
}

func (r *PostgresStorage) ByTokenForUpdate(tx *sql.Tx, token string) (*PendingSignup, error) {
	return scanPending(tx.QueryRow(
		`SELECT `+pendingColumns+` FROM pending_signups WHERE token = $1 FOR UPDATE`, token))
}

func (r *PostgresStorage) Delete(tx *sql.Tx, token string) error {
	_, err := tx.Exec(`DELETE FROM pending_signups WHERE token = $1`, token)
	return err
}

// DeleteExpired removes signups whose OTP expired and whose block, if any,
// has lapsed. Expiry is otherwise detected lazily at verification time.
func (r *PostgresStorage) DeleteExpired(tx *sql.Tx) (int64, error) {
	result, err := tx.Exec(`
		DELETE FROM pending_signups
		WHERE otp_expires < now()
		AND (block_expires IS NULL OR block_expires < now())`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
