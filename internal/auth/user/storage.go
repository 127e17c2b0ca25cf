package user

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrDuplicateVoatID = errors.New("voat id already allocated")
)

type Saver interface {
	SaveUser(tx *sql.Tx, user *User) error
}

type Updater interface {
	UpdateSecurityCounters(tx *sql.Tx, userID uuid.UUID, c SecurityCounters) error
	UpdatePassword(tx *sql.Tx, userID uuid.UUID, hashedPassword string) error
	SetResetToken(tx *sql.Tx, userID uuid.UUID, token string, expires time.Time) error
	ClearResetToken(tx *sql.Tx, userID uuid.UUID) error
	SetEmailChange(tx *sql.Tx, userID uuid.UUID, pendingEmail, token string, expires time.Time) error
	ClearEmailChange(tx *sql.Tx, userID uuid.UUID) error
	PromotePendingEmail(tx *sql.Tx, userID uuid.UUID, newEmail string) error
}

type Provider interface {
	UserByEmail(email string) (*User, error)
	UserByID(id uuid.UUID) (*User, error)
	UserByEmailForUpdate(tx *sql.Tx, email string) (*User, error)
	UserByIDForUpdate(tx *sql.Tx, id uuid.UUID) (*User, error)
	UserByResetTokenForUpdate(tx *sql.Tx, token string) (*User, error)
	UserByEmailChangeTokenForUpdate(tx *sql.Tx, token string) (*User, error)
	MaxVoatSequence(tx *sql.Tx) (int, error)
}

type PostgresStorage struct {
	db *sql.DB
}

func NewUserPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

const userColumns = `id, name, email, password_hash, role, voat_id, verified, resume_ref,
	       login_attempts, otp_attempts, last_failed_login, lockout_expires,
	       otp_code, otp_expires, last_otp_sent,
	       reset_token, reset_expires,
	       email_change_token, email_change_expires, pending_email,
	       created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.VoatID, &user.Verified, &user.ResumeRef,
		&user.LoginAttempts, &user.OtpAttempts, &user.LastFailedLogin, &user.LockoutExpires,
		&user.OtpCode, &user.OtpExpires, &user.LastOtpSent,
		&user.ResetToken, &user.ResetExpires,
		&user.EmailChangeToken, &user.EmailChangeExpires, &user.PendingEmail,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresStorage) SaveUser(tx *sql.Tx, user *User) error {
	_, err := tx.Exec(`
		INSERT INTO users (id, name, email, password_hash, role, voat_id, verified, resume_ref,
		                   created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.VoatID,
		user.Verified, user.ResumeRef, user.CreatedAt, user.UpdatedAt)
	return mapUniqueViolation(err)
}

func (r *PostgresStorage) UpdateSecurityCounters(tx *sql.Tx, userID uuid.UUID, c SecurityCounters) error {
	_, err := tx.Exec(`
		UPDATE users SET
		login_attempts = $2, otp_attempts = $3, last_failed_login = $4, lockout_expires = $5,
		otp_code = $6, otp_expires = $7, last_otp_sent = $8, updated_at = now()
		WHERE id = $1`,
		userID, c.LoginAttempts, c.OtpAttempts, c.LastFailedLogin, c.LockoutExpires,
		c.OtpCode, c.OtpExpires, c.LastOtpSent)
	return err
}

func (r *PostgresStorage) UpdatePassword(tx *sql.Tx, userID uuid.UUID, hashedPassword string) error {
	_, err := tx.Exec(`
		UPDATE users SET password_hash = $2, reset_token = NULL, reset_expires = NULL, updated_at = now()
		WHERE id = $1`,
		userID, hashedPassword)
	return err
}

func (r *PostgresStorage) SetResetToken(tx *sql.Tx, userID uuid.UUID, token string, expires time.Time) error {
	_, err := tx.Exec(`
		UPDATE users SET reset_token = $2, reset_expires = $3, updated_at = now()
		WHERE id = $1`,
		userID, token, expires)
	return err
}

func (r *PostgresStorage) ClearResetToken(tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(`
		UPDATE users SET reset_token = NULL, reset_expires = NULL, updated_at = now()
		WHERE id = $1`,
		userID)
	return err
}

func (r *PostgresStorage) SetEmailChange(tx *sql.Tx, userID uuid.UUID, pendingEmail, token string, expires time.Time) error {
	_, err := tx.Exec(`
		UPDATE users SET pending_email = $2, email_change_token = $3, email_change_expires = $4, updated_at = now()
		WHERE id = $1`,
		userID, pendingEmail, token, expires)
	return err
}

func (r *PostgresStorage) ClearEmailChange(tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(`
		UPDATE users SET pending_email = NULL, email_change_token = NULL, email_change_expires = NULL, updated_at = now()
		WHERE id = $1`,
		userID)
	return err
}

func (r *PostgresStorage) PromotePendingEmail(tx *sql.Tx, userID uuid.UUID, newEmail string) error {
	_, err := tx.Exec(`
		UPDATE users SET email = $2, pending_email = NULL, email_change_token = NULL,
		email_change_expires = NULL, updated_at = now()
		WHERE id = $1`,
		userID, newEmail)
	return mapUniqueViolation(err)
}

func (r *PostgresStorage) UserByEmail(email string) (*User, error) {
	return scanUser(r.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *PostgresStorage) UserByID(id uuid.UUID) (*User, error) {
	return scanUser(r.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresStorage) UserByEmailForUpdate(tx *sql.Tx, email string) (*User, error) {
	return scanUser(tx.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, email))
}

func (r *PostgresStorage) UserByIDForUpdate(tx *sql.Tx, id uuid.UUID) (*User, error) {
	return scanUser(tx.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func (r *PostgresStorage) UserByResetTokenForUpdate(tx *sql.Tx, token string) (*User, error) {
	return scanUser(tx.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE reset_token = $1 FOR UPDATE`, token))
}

func (r *PostgresStorage) UserByEmailChangeTokenForUpdate(tx *sql.Tx, token string) (*User, error) {
	return scanUser(tx.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE email_change_token = $1 FOR UPDATE`, token))
}

// MaxVoatSequence returns the highest numeric suffix among allocated VOAT ids.
// The caller allocates suffix+1 inside the same transaction; the unique index
// on voat_id turns a concurrent allocation into ErrDuplicateVoatID.
func (r *PostgresStorage) MaxVoatSequence(tx *sql.Tx) (int, error) {
	var max sql.NullInt64
	err := tx.QueryRow(`
		SELECT MAX(CAST(SUBSTRING(voat_id FROM 'VOAT-(\d+)') AS INTEGER))
		FROM users`).Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "users_voat_id_key":
			return ErrDuplicateVoatID
		default:
			return ErrDuplicateEmail
		}
	}
	return err
}
