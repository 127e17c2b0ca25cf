package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Roles form a closed set; anything else is rejected at signup.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleHR         = "hr"
	RoleJobseeker  = "jobseeker"
)

func ValidRole(role string) bool {
	switch role {
	case RoleSuperadmin, RoleAdmin, RoleHR, RoleJobseeker:
		return true
	}
	return false
}

// User is a verified account plus its credential-security counters.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	VoatID       string
	Verified     bool
	ResumeRef    sql.NullString

	LoginAttempts   int
	OtpAttempts     int
	LastFailedLogin sql.NullTime
	LockoutExpires  sql.NullTime
	OtpCode         sql.NullString
	OtpExpires      sql.NullTime
	LastOtpSent     sql.NullTime

	ResetToken   sql.NullString
	ResetExpires sql.NullTime

	EmailChangeToken   sql.NullString
	EmailChangeExpires sql.NullTime
	PendingEmail       sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockedUntil reports whether the account is locked out at the given instant
// and, if so, how long remains.
func (u *User) LockedUntil(now time.Time) (time.Duration, bool) {
	if u.LockoutExpires.Valid && u.LockoutExpires.Time.After(now) {
		return u.LockoutExpires.Time.Sub(now), true
	}
	return 0, false
}

// SecurityCounters enumerates exactly the mutable attempt-tracking fields of
// an account. Updates go through this struct wholesale so no caller can
// invent a column name.
type SecurityCounters struct {
	LoginAttempts   int
	OtpAttempts     int
	LastFailedLogin sql.NullTime
	LockoutExpires  sql.NullTime
	OtpCode         sql.NullString
	OtpExpires      sql.NullTime
	LastOtpSent     sql.NullTime
}

// Counters extracts the current security counters from the account row.
func (u *User) Counters() SecurityCounters {
	return SecurityCounters{
		LoginAttempts:   u.LoginAttempts,
		OtpAttempts:     u.OtpAttempts,
		LastFailedLogin: u.LastFailedLogin,
		LockoutExpires:  u.LockoutExpires,
		OtpCode:         u.OtpCode,
		OtpExpires:      u.OtpExpires,
		LastOtpSent:     u.LastOtpSent,
	}
}
