package signup

import (
	"database/sql"
	"time"
)

// PendingSignup is a transient pre-account record; at most one exists per
// email. It lives in the database so signup flows survive restarts and
// multiple processes (an early design kept these in a process-wide map).
type PendingSignup struct {
	Token        string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	ResumeRef    sql.NullString

	OtpCode     string
	OtpExpires  time.Time
	LastOtpSent time.Time

	// Verification failures and resend requests are tracked separately,
	// each with its own budget.
	VerifyFailures int
	ResendCount    int
	BlockExpires   sql.NullTime

	CreatedAt time.Time
}

// BlockedUntil reports whether the signup is blocked at the given instant.
func (p *PendingSignup) BlockedUntil(now time.Time) (time.Duration, bool) {
	if p.BlockExpires.Valid && p.BlockExpires.Time.After(now) {
		return p.BlockExpires.Time.Sub(now), true
	}
	return 0, false
}

// Progress enumerates the mutable fields of an in-flight signup.
type Progress struct {
	OtpCode        string
	OtpExpires     time.Time
	LastOtpSent    time.Time
	VerifyFailures int
	ResendCount    int
	BlockExpires   sql.NullTime
}

// Progress extracts the current mutable state from the record.
func (p *PendingSignup) Progress() Progress {
	return Progress{
		OtpCode:        p.OtpCode,
		OtpExpires:     p.OtpExpires,
		LastOtpSent:    p.LastOtpSent,
		VerifyFailures: p.VerifyFailures,
		ResendCount:    p.ResendCount,
		BlockExpires:   p.BlockExpires,
	}
}
