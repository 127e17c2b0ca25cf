package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"voat/infrastructure"
	"voat/internal/auth/signup"
	"voat/internal/auth/user"
)

const (
	otpValidity         = 5 * time.Minute
	signupBlockDuration = 5 * time.Minute
	lockoutDuration     = 5 * time.Minute
	resendCooldown      = 30 * time.Second
	resetTokenValidity  = time.Hour
	emailChangeValidity = time.Hour

	signupVerifyBudget  = 3
	signupResendBudget  = 3
	loginPasswordBudget = 5
	loginOtpBudget      = 3

	voatAllocationRetries = 3
)

// Generic response texts. The password-reset and email-change requests answer
// identically whether or not the account exists.
const (
	genericResetMessage   = "If a user with that email exists, a password reset link has been sent."
	genericChangeMessage  = "If an account with that email exists, a confirmation link has been sent to the new address."
	genericFailureMessage = "An error occurred while processing your request. Please try again later."
)

// Notifier delivers one-time codes and verification links. Implementations
// may fail transiently; every flow sends before it commits state.
type Notifier interface {
	SendOTP(to, code string) error
	SendPasswordResetLink(to, resetLink string) error
	SendEmailChangeLink(to, verifyLink string) error
}

// Service owns the account lifecycle state machine: signup verification,
// login (password and OTP), password reset and email change, including all
// attempt counting, cooldown and lockout policy.
type Service struct {
	userSaver    user.Saver
	userUpdater  user.Updater
	userProvider user.Provider

	pendingSaver    signup.Saver
	pendingUpdater  signup.Updater
	pendingProvider signup.Provider
	pendingDeleter  signup.Deleter

	notifier Notifier
	gen      Generator
	tokens   *TokenIssuer

	frontendURL string

	now   func() time.Time
	runTx func(ctx context.Context, fn func(*sql.Tx) error) error
}

func NewService(
	db *sql.DB,
	userSaver user.Saver,
	userUpdater user.Updater,
	userProvider user.Provider,
	pendingSaver signup.Saver,
	pendingUpdater signup.Updater,
	pendingProvider signup.Provider,
	pendingDeleter signup.Deleter,
	notifier Notifier,
	gen Generator,
	tokens *TokenIssuer,
	frontendURL string,
) *Service {
	return &Service{
		userSaver:       userSaver,
		userUpdater:     userUpdater,
		userProvider:    userProvider,
		pendingSaver:    pendingSaver,
		pendingUpdater:  pendingUpdater,
		pendingProvider: pendingProvider,
		pendingDeleter:  pendingDeleter,
		notifier:        notifier,
		gen:             gen,
		tokens:          tokens,
		frontendURL:     frontendURL,
		now:             time.Now,
		runTx: func(ctx context.Context, fn func(*sql.Tx) error) error {
			return infrastructure.WithTransaction(db, ctx, fn)
		},
	}
}

type AccountSummary struct {
	ID     string `json:"id"`
	VoatID string `json:"voatId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func summary(u *user.User) AccountSummary {
	return AccountSummary{
		ID:     u.ID.String(),
		VoatID: u.VoatID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
	}
}

type SignupResult struct {
	TempToken string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   AccountSummary
}

type OTPRequestResult struct {
	ExpiresAt time.Time
}

type SignupInput struct {
	Name      string
	Email     string
	Password  string
	Role      string
	ResumeRef string
}

func (s *Service) validateSignup(in SignupInput) []string {
	var violations []string
	if strings.TrimSpace(in.Name) == "" {
		violations = append(violations, "name is required")
	}
	if !validEmail(in.Email) {
		violations = append(violations, "invalid email")
	}
	violations = append(violations, ValidatePassword(in.Password)...)
	if !user.ValidRole(in.Role) {
		violations = append(violations, "invalid role")
	}
	if in.Role == user.RoleJobseeker && in.ResumeRef == "" {
		violations = append(violations, "resume required for jobseekers")
	}
	return violations
}

// Signup starts the signup-OTP flow. Replayed requests for an email with an
// unblocked pending signup return the same continuation token without minting
// a new OTP; emails that already have an account get a response
// indistinguishable from a fresh signup.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*SignupResult, *Error) {
	if violations := s.validateSignup(in); len(violations) > 0 {
		return nil, validationError(violations)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, internalError(err)
	}

	var result *SignupResult
	var opErr *Error
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		_, err := s.userProvider.UserByEmail(in.Email)
		if err == nil {
			result = &SignupResult{TempToken: s.gen.Token()}
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		pending, err := s.pendingProvider.ByEmailForUpdate(tx, in.Email)
		if err == nil {
			if remaining, blocked := pending.BlockedUntil(s.now()); blocked {
				opErr = rateLimitedError("too many attempts, try again later", remaining)
				return nil
			}
			result = &SignupResult{TempToken: pending.Token}
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		now := s.now()
		otp := s.gen.OTP()
		token := s.gen.Token()

		if err := s.notifier.SendOTP(in.Email, otp); err != nil {
			opErr = deliveryError("failed to send OTP", err)
			return nil
		}

		pending = &signup.PendingSignup{
			Token:        token,
			Email:        in.Email,
			Name:         in.Name,
			PasswordHash: hash,
			Role:         in.Role,
			ResumeRef:    nullString(in.ResumeRef),
			OtpCode:      otp,
			OtpExpires:   now.Add(otpValidity),
			LastOtpSent:  now,
			CreatedAt:    now,
		}
		if err := s.pendingSaver.SavePendingSignup(tx, pending); err != nil {
			return err
		}
		result = &SignupResult{TempToken: token}
		return nil
	})
	if err != nil {
		if errors.Is(err, signup.ErrDuplicatePending) {
			return nil, &Error{Kind: KindConflict, Message: "signup already in progress"}
		}
		return nil, internalError(err)
	}
	if opErr != nil {
		return nil, opErr
	}
	return result, nil
}

// ResendSignupOTP mints a fresh signup OTP, subject to the 30 second cooldown
// and the resend budget. Exhausting the budget blocks the signup for 5
// minutes.
func (s *Service) ResendSignupOTP(ctx context.Context, email, token string) (*SignupResult, *Error) {
	var result *SignupResult
	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		pending, err := s.pendingProvider.ByTokenForUpdate(tx, token)
		if errors.Is(err, sql.ErrNoRows) {
			opErr = invalidTokenError("invalid or expired token")
			return nil
		}
		if err != nil {
			return err
		}
		if pending.Email != email {
			opErr = invalidTokenError("invalid or expired token")
			return nil
		}

		now := s.now()
		if remaining, blocked := pending.BlockedUntil(now); blocked {
			opErr = rateLimitedError("too many OTP requests, try again later", remaining)
			return nil
		}
		if since := now.Sub(pending.LastOtpSent); since < resendCooldown {
			opErr = rateLimitedError("please wait before requesting another OTP", resendCooldown-since)
			return nil
		}
		if pending.ResendCount >= signupResendBudget {
			progress := pending.Progress()
			progress.BlockExpires = sql.NullTime{Time: now.Add(signupBlockDuration), Valid: true}
			if err := s.pendingUpdater.UpdateProgress(tx, pending.Token, progress); err != nil {
				return err
			}
			// commit the block even though the request fails
			opErr = rateLimitedError("too many OTP requests, try again later", signupBlockDuration)
			return nil
		}

		otp := s.gen.OTP()
		if err := s.notifier.SendOTP(email, otp); err != nil {
			opErr = deliveryError("failed to send OTP", err)
			return nil
		}

		progress := pending.Progress()
		progress.OtpCode = otp
		progress.OtpExpires = now.Add(otpValidity)
		progress.LastOtpSent = now
		progress.ResendCount++
		if err := s.pendingUpdater.UpdateProgress(tx, pending.Token, progress); err != nil {
			return err
		}
		result = &SignupResult{TempToken: pending.Token}
		return nil
	})
	if err != nil {
		return nil, internalError(err)
	}
	if opErr != nil {
		return nil, opErr
	}
	return result, nil
}

// VerifySignupOTP promotes a pending signup into a verified account. The
// VOAT id is derived from the highest allocated suffix inside the promotion
// transaction; the unique index on voat_id plus a bounded retry covers
// concurrent allocations.
func (s *Service) VerifySignupOTP(ctx context.Context, email, otp, token string) (*LoginResult, *Error) {
	for attempt := 0; attempt < voatAllocationRetries; attempt++ {
		result, opErr, retry := s.verifySignupAttempt(ctx, email, otp, token)
		if retry {
			continue
		}
		return result, opErr
	}
	return nil, internalError(errors.New("could not allocate voat id"))
}

func (s *Service) verifySignupAttempt(ctx context.Context, email, otp, token string) (*LoginResult, *Error, bool) {
	var promoted *user.User
	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		pending, err := s.pendingProvider.ByTokenForUpdate(tx, token)
		if errors.Is(err, sql.ErrNoRows) {
			opErr = invalidTokenError("invalid or expired token")
			return nil
		}
		if err != nil {
			return err
		}
		if pending.Email != email {
			opErr = invalidTokenError("invalid or expired token")
			return nil
		}

		now := s.now()
		if remaining, blocked := pending.BlockedUntil(now); blocked {
			opErr = rateLimitedError("too many failed attempts, try again later", remaining)
			return nil
		}
		if pending.OtpExpires.Before(now) {
			if err := s.pendingDeleter.Delete(tx, pending.Token); err != nil {
				return err
			}
			opErr = expiredError("OTP expired")
			return nil
		}
		if pending.OtpCode != otp {
			progress := pending.Progress()
			progress.VerifyFailures++
			left := signupVerifyBudget - progress.VerifyFailures
			if left < 0 {
				left = 0
			}
			if progress.VerifyFailures >= signupVerifyBudget {
				progress.BlockExpires = sql.NullTime{Time: now.Add(signupBlockDuration), Valid: true}
			}
			if err := s.pendingUpdater.UpdateProgress(tx, pending.Token, progress); err != nil {
				return err
			}
			opErr = &Error{
				Kind:            KindIncorrectCredential,
				Message:         "incorrect OTP",
				OTPAttemptsLeft: intPtr(left),
			}
			return nil
		}

		seq, err := s.userProvider.MaxVoatSequence(tx)
		if err != nil {
			return err
		}
		promoted = &user.User{
			ID:           uuid.New(),
			Name:         pending.Name,
			Email:        pending.Email,
			PasswordHash: pending.PasswordHash,
			Role:         pending.Role,
			VoatID:       fmt.Sprintf("VOAT-%03d", seq+1),
			Verified:     true,
			ResumeRef:    pending.ResumeRef,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.userSaver.SaveUser(tx, promoted); err != nil {
			return err
		}
		return s.pendingDeleter.Delete(tx, pending.Token)
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateVoatID) {
			return nil, nil, true
		}
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, &Error{Kind: KindConflict, Message: "account already exists"}, false
		}
		return nil, internalError(err), false
	}
	if opErr != nil {
		return nil, opErr, false
	}
	result := s.loginResult(promoted)
	if result == nil {
		return nil, internalError(errors.New("failed to issue token")), false
	}
	return result, nil, false
}

func (s *Service) loginResult(u *user.User) *LoginResult {
	signed, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		// Token minting only fails on a broken secret; surface loudly.
		slog.Error("failed to issue auth token", "error", err)
		return nil
	}
	return &LoginResult{Token: signed, ExpiresAt: expiresAt, Account: summary(u)}
}

// LoginWithPassword authenticates against the stored hash. Five cumulative
// misses lock the account for 5 minutes; success resets every security
// counter.
func (s *Service) LoginWithPassword(ctx context.Context, email, password string) (*LoginResult, *Error) {
	if !validEmail(email) {
		return nil, validationError([]string{"invalid email"})
	}

	var account *user.User
	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		u, err := s.userProvider.UserByEmailForUpdate(tx, email)
		if errors.Is(err, sql.ErrNoRows) {
			opErr = notFoundError()
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		if remaining, locked := u.LockedUntil(now); locked {
			opErr = lockedError(remaining)
			return nil
		}
		if !u.Verified {
			opErr = unverifiedError()
			return nil
		}

		if !verifyPassword(u.PasswordHash, password) {
			counters := u.Counters()
			counters.LoginAttempts++
			counters.LastFailedLogin = sql.NullTime{Time: now, Valid: true}
			left := loginPasswordBudget - counters.LoginAttempts
			if left < 0 {
				left = 0
			}
			if counters.LoginAttempts >= loginPasswordBudget {
				counters.LockoutExpires = sql.NullTime{Time: now.Add(lockoutDuration), Valid: true}
			}
			if err := s.userUpdater.UpdateSecurityCounters(tx, u.ID, counters); err != nil {
				return err
			}
			opErr = &Error{
				Kind:              KindIncorrectCredential,
				Message:           "incorrect password",
				LoginAttemptsLeft: intPtr(left),
			}
			return nil
		}

		if err := s.userUpdater.UpdateSecurityCounters(tx, u.ID, user.SecurityCounters{}); err != nil {
			return err
		}
		account = u
		return nil
	})
	if err != nil {
		return nil, internalError(err)
	}
	if opErr != nil {
		return nil, opErr
	}
	result := s.loginResult(account)
	if result == nil {
		return nil, internalError(errors.New("failed to issue token"))
	}
	return result, nil
}

// RequestLoginOTP issues a login OTP, applying the 30 second cooldown against
// the last send. Entering the flow with stale attempt counters (and no active
// lockout) grants a fresh grace period. A delivery failure still records the
// send time so the cooldown applies.
func (s *Service) RequestLoginOTP(ctx context.Context, email string) (*OTPRequestResult, *Error) {
	if !validEmail(email) {
		return nil, validationError([]string{"invalid email"})
	}

	var result *OTPRequestResult
	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		u, err := s.userProvider.UserByEmailForUpdate(tx, email)
		if errors.Is(err, sql.ErrNoRows) {
			opErr = notFoundError()
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		if remaining, locked := u.LockedUntil(now); locked {
			opErr = lockedError(remaining)
			return nil
		}
		if !u.Verified {
			opErr = unverifiedError()
			return nil
		}
		if u.LastOtpSent.Valid {
			if since := now.Sub(u.LastOtpSent.Time); since < resendCooldown {
				opErr = rateLimitedError("OTP already sent, please wait", resendCooldown-since)
				return nil
			}
		}

		counters := u.Counters()
		counters.OtpAttempts = 0
		counters.LoginAttempts = 0

		otp := s.gen.OTP()
		expires := now.Add(otpValidity)

		if err := s.notifier.SendOTP(email, otp); err != nil {
			counters.OtpCode = sql.NullString{}
			counters.OtpExpires = sql.NullTime{}
			counters.LastOtpSent = sql.NullTime{Time: now, Valid: true}
			if uerr := s.userUpdater.UpdateSecurityCounters(tx, u.ID, counters); uerr != nil {
				return uerr
			}
			opErr = deliveryError("failed to send OTP", err)
			return nil
		}

		counters.OtpCode = sql.NullString{String: otp, Valid: true}
		counters.OtpExpires = sql.NullTime{Time: expires, Valid: true}
		counters.LastOtpSent = sql.NullTime{Time: now, Valid: true}
		if err := s.userUpdater.UpdateSecurityCounters(tx, u.ID, counters); err != nil {
			return err
		}
		result = &OTPRequestResult{ExpiresAt: expires}
		return nil
	})
	if err != nil {
		return nil, internalError(err)
	}
	if opErr != nil {
		return nil, opErr
	}
	return result, nil
}

// VerifyLoginOTP consumes a login OTP. A mismatch burns both the OTP budget
// (3) and the login budget (5); the first exhausted budget locks the account.
func (s *Service) VerifyLoginOTP(ctx context.Context, email, otp string) (*LoginResult, *Error) {
	if !validEmail(email) {
		return nil, validationError([]string{"invalid email"})
	}

	var account *user.User
	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		u, err := s.userProvider.UserByEmailForUpdate(tx, email)
		if errors.Is(err, sql.ErrNoRows) {
			opErr = notFoundError()
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		if remaining, locked := u.LockedUntil(now); locked {
			opErr = lockedError(remaining)
			return nil
		}
		if !u.Verified {
			opErr = unverifiedError()
			return nil
		}

		if !u.OtpCode.Valid || !u.OtpExpires.Valid || u.OtpExpires.Time.Before(now) {
			if u.OtpCode.Valid {
				// lazy cleanup of the expired code
				counters := u.Counters()
				counters.OtpCode = sql.NullString{}
				counters.OtpExpires = sql.NullTime{}
				if err := s.userUpdater.UpdateSecurityCounters(tx, u.ID, counters); err != nil {
					return err
				}
			}
			opErr = expiredError("OTP expired or not found")
			return nil
		}

		if u.OtpCode.String != otp {
			counters := u.Counters()
			counters.OtpAttempts++
			counters.LoginAttempts++
			counters.LastFailedLogin = sql.NullTime{Time: now, Valid: true}

			otpLeft := loginOtpBudget - counters.OtpAttempts
			if otpLeft < 0 {
				otpLeft = 0
			}
			loginLeft := loginPasswordBudget - counters.LoginAttempts
			if loginLeft < 0 {
				loginLeft = 0
			}
			if counters.OtpAttempts >= loginOtpBudget || counters.LoginAttempts >= loginPasswordBudget {
				counters.LockoutExpires = sql.NullTime{Time: now.Add(lockoutDuration), Valid: true}
			}
			if err := s.userUpdater.UpdateSecurityCounters(tx, u.ID, counters); err != nil {
				return err
			}
			opErr = &Error{
				Kind:              KindIncorrectCredential,
				Message:           "incorrect OTP",
				OTPAttemptsLeft:   intPtr(otpLeft),
				LoginAttemptsLeft: intPtr(loginLeft),
			}
			return nil
		}

		if err := s.userUpdater.UpdateSecurityCounters(tx, u.ID, user.SecurityCounters{}); err != nil {
			return err
		}
		account = u
		return nil
	})
	if err != nil {
		return nil, internalError(err)
	}
	if opErr != nil {
		return nil, opErr
	}
	result := s.loginResult(account)
	if result == nil {
		return nil, internalError(errors.New("failed to issue token"))
	}
	return result, nil
}

// RequestPasswordReset answers with the same message whether or not the
// account exists. When it does, a reset link valid for 1 hour is sent before
// the token is committed.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, *Error) {
	if email == "" {
		return "", validationError([]string{"email is required"})
	}

	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		u, err := s.userProvider.UserByEmailForUpdate(tx, email)
		if errors.Is(err, sql.ErrNoRows) {
			slog.DebugContext(ctx, "password reset requested for unknown email")
			return nil
		}
		if err != nil {
			return err
		}

		token := s.gen.Token()
		resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
		if err := s.notifier.SendPasswordResetLink(u.Email, resetLink); err != nil {
			opErr = deliveryError(genericFailureMessage, err)
			return nil
		}
		return s.userUpdater.SetResetToken(tx, u.ID, token, s.now().Add(resetTokenValidity))
	})
	if err != nil {
		return "", internalError(err)
	}
	if opErr != nil {
		return "", opErr
	}
	return genericResetMessage, nil
}

// ResetPassword consumes a reset token exactly once. Login and OTP counters
// are a separate concern and stay untouched.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) *Error {
	if token == "" || newPassword == "" {
		return validationError([]string{"token and new password are required"})
	}

	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		u, err := s.userProvider.UserByResetTokenForUpdate(tx, token)
		if errors.Is(err, sql.ErrNoRows) {
			opErr = invalidTokenError("invalid or expired reset token")
			return nil
		}
		if err != nil {
			return err
		}

		if !u.ResetExpires.Valid || u.ResetExpires.Time.Before(s.now()) {
			if err := s.userUpdater.ClearResetToken(tx, u.ID); err != nil {
				return err
			}
			opErr = invalidTokenError("invalid or expired reset token")
			return nil
		}
		if violations := ValidatePassword(newPassword); len(violations) > 0 {
			opErr = validationError(violations)
			return nil
		}
		if verifyPassword(u.PasswordHash, newPassword) {
			opErr = &Error{Kind: KindSamePassword, Message: "new password must differ from the current password"}
			return nil
		}

		hash, err := hashPassword(newPassword)
		if err != nil {
			return err
		}
		return s.userUpdater.UpdatePassword(tx, u.ID, hash)
	})
	if err != nil {
		return internalError(err)
	}
	return opErr
}

// RequestEmailChange stores a pending new email and sends a confirmation link
// to the new address. Unknown current emails get the generic success.
func (s *Service) RequestEmailChange(ctx context.Context, oldEmail, newEmail string) (string, *Error) {
	var violations []string
	if !validEmail(oldEmail) {
		violations = append(violations, "invalid current email")
	}
	if !validEmail(newEmail) {
		violations = append(violations, "invalid new email")
	}
	if len(violations) > 0 {
		return "", validationError(violations)
	}

	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		u, err := s.userProvider.UserByEmailForUpdate(tx, oldEmail)
		if errors.Is(err, sql.ErrNoRows) {
			slog.DebugContext(ctx, "email change requested for unknown email")
			return nil
		}
		if err != nil {
			return err
		}

		_, err = s.userProvider.UserByEmail(newEmail)
		if err == nil {
			opErr = &Error{Kind: KindConflict, Message: "email already in use"}
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		token := s.gen.Token()
		verifyLink := fmt.Sprintf("%s/verify-email-change?token=%s", s.frontendURL, token)
		if err := s.notifier.SendEmailChangeLink(newEmail, verifyLink); err != nil {
			opErr = deliveryError(genericFailureMessage, err)
			return nil
		}
		return s.userUpdater.SetEmailChange(tx, u.ID, newEmail, token, s.now().Add(emailChangeValidity))
	})
	if err != nil {
		return "", internalError(err)
	}
	if opErr != nil {
		return "", opErr
	}
	return genericChangeMessage, nil
}

// ConfirmEmailChange promotes the pending email to primary.
func (s *Service) ConfirmEmailChange(ctx context.Context, token string) *Error {
	if token == "" {
		return validationError([]string{"token is required"})
	}

	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		u, err := s.userProvider.UserByEmailChangeTokenForUpdate(tx, token)
		if errors.Is(err, sql.ErrNoRows) {
			opErr = invalidTokenError("invalid or expired token")
			return nil
		}
		if err != nil {
			return err
		}
		if !u.PendingEmail.Valid {
			opErr = invalidTokenError("invalid or expired token")
			return nil
		}
		if !u.EmailChangeExpires.Valid || u.EmailChangeExpires.Time.Before(s.now()) {
			if err := s.userUpdater.ClearEmailChange(tx, u.ID); err != nil {
				return err
			}
			opErr = expiredError("verification link expired")
			return nil
		}
		return s.userUpdater.PromotePendingEmail(tx, u.ID, u.PendingEmail.String)
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return &Error{Kind: KindConflict, Message: "email already in use"}
		}
		return internalError(err)
	}
	return opErr
}

// ChangePassword is the authenticated variant: the caller proves the current
// password instead of holding a reset token.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) *Error {
	var opErr *Error
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		u, err := s.userProvider.UserByIDForUpdate(tx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			opErr = notFoundError()
			return nil
		}
		if err != nil {
			return err
		}

		if !verifyPassword(u.PasswordHash, oldPassword) {
			opErr = &Error{Kind: KindIncorrectCredential, Message: "incorrect password"}
			return nil
		}
		if violations := ValidatePassword(newPassword); len(violations) > 0 {
			opErr = validationError(violations)
			return nil
		}
		if verifyPassword(u.PasswordHash, newPassword) {
			opErr = &Error{Kind: KindSamePassword, Message: "new password must differ from the current password"}
			return nil
		}

		hash, err := hashPassword(newPassword)
		if err != nil {
			return err
		}
		return s.userUpdater.UpdatePassword(tx, u.ID, hash)
	})
	if err != nil {
		return internalError(err)
	}
	return opErr
}

// AuthStatus resolves the account behind a bearer token.
func (s *Service) AuthStatus(ctx context.Context, userID uuid.UUID) (*AccountSummary, *Error) {
	u, err := s.userProvider.UserByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError()
	}
	if err != nil {
		return nil, internalError(err)
	}
	result := summary(u)
	return &result, nil
}

// PurgeExpiredSignups removes pending signups whose OTP expired and whose
// block has lapsed. Meant to run periodically; expiry is otherwise handled
// lazily when a stale signup is touched.
func (s *Service) PurgeExpiredSignups(ctx context.Context) (int64, error) {
	var purged int64
	err := infrastructure.TimeOperation(ctx, "purge expired signups", func() error {
		return s.runTx(ctx, func(tx *sql.Tx) error {
			n, err := s.pendingDeleter.DeleteExpired(tx)
			purged = n
			return err
		})
	})
	return purged, err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
