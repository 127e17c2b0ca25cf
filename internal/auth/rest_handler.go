package auth

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type JSONHandler struct {
	service *Service
}

func NewJSONAuthHandler(service *Service) *JSONHandler {
	return &JSONHandler{service: service}
}

type errorResponse struct {
	Error             string   `json:"error"`
	Violations        []string `json:"violations,omitempty"`
	RetryAfterSeconds int      `json:"retryAfterSeconds,omitempty"`
	OTPAttemptsLeft   *int     `json:"otpAttemptsLeft,omitempty"`
	LoginAttemptsLeft *int     `json:"loginAttemptsLeft,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeError(w http.ResponseWriter, opErr *Error) {
	if opErr.Kind == KindInternal {
		slog.Error("operation failed", "error", opErr.Error())
	}
	response := errorResponse{
		Error:             opErr.Message,
		Violations:        opErr.Violations,
		OTPAttemptsLeft:   opErr.OTPAttemptsLeft,
		LoginAttemptsLeft: opErr.LoginAttemptsLeft,
	}
	status := opErr.HTTPStatus()
	if opErr.RetryAfter > 0 {
		seconds := int(math.Ceil(opErr.RetryAfter.Seconds()))
		response.RetryAfterSeconds = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	writeJSON(w, status, response)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *JSONHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}

	result, opErr := h.service.Signup(r.Context(), SignupInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		ResumeRef: req.ResumeRef,
	})
	if opErr != nil {
		writeError(w, opErr)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message   string `json:"message"`
		TempToken string `json:"tempToken"`
	}{
		Message:   "OTP sent to email",
		TempToken: result.TempToken,
	})
}

func (h *JSONHandler) ResendSignupOTP(w http.ResponseWriter, r *http.Request) {
	var req ResendSignupOTPRequest
	if !decode(w, r, &req) {
		return
	}

	result, opErr := h.service.ResendSignupOTP(r.Context(), req.Email, req.TempToken)
	if opErr != nil {
		writeError(w, opErr)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message   string `json:"message"`
		TempToken string `json:"tempToken"`
	}{
		Message:   "OTP resent to email",
		TempToken: result.TempToken,
	})
}

// VerifyOTP dispatches on the request type: "signup" finishes account
// creation, "login" completes an OTP login. Both answer with a session token.
func (h *JSONHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	var result *LoginResult
	var opErr *Error
	switch req.Type {
	case "signup":
		result, opErr = h.service.VerifySignupOTP(r.Context(), req.Email, req.OTP, req.TempToken)
	case "login":
		result, opErr = h.service.VerifyLoginOTP(r.Context(), req.Email, req.OTP)
	default:
		writeJSONError(w, http.StatusBadRequest, "type must be signup or login")
		return
	}
	if opErr != nil {
		writeError(w, opErr)
		return
	}
	writeLoginResult(w, result)
}

func (h *JSONHandler) LoginPassword(w http.ResponseWriter, r *http.Request) {
	var req LoginPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	result, opErr := h.service.LoginWithPassword(r.Context(), req.Email, req.Password)
	if opErr != nil {
		writeError(w, opErr)
		return
	}
	writeLoginResult(w, result)
}

func writeLoginResult(w http.ResponseWriter, result *LoginResult) {
	writeJSON(w, http.StatusOK, struct {
		Token     string         `json:"token"`
		ExpiresAt time.Time      `json:"expiresAt"`
		User      AccountSummary `json:"user"`
	}{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.Account,
	})
}

func (h *JSONHandler) RequestLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req RequestLoginOTPRequest
	if !decode(w, r, &req) {
		return
	}

	result, opErr := h.service.RequestLoginOTP(r.Context(), req.Email)
	if opErr != nil {
		writeError(w, opErr)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message   string    `json:"message"`
		ExpiresAt time.Time `json:"expiresAt"`
	}{
		Message:   "OTP sent to email",
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *JSONHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	message, opErr := h.service.RequestPasswordReset(r.Context(), req.Email)
	if opErr != nil {
		writeError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: message})
}

func (h *JSONHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if opErr := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); opErr != nil {
		writeError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: "Password has been reset successfully."})
}

func (h *JSONHandler) VerifyEmailChange(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	if opErr := h.service.ConfirmEmailChange(r.Context(), token); opErr != nil {
		writeError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: "Email address updated successfully."})
}

func (h *JSONHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	account, opErr := h.service.AuthStatus(r.Context(), userID)
	if opErr != nil {
		writeError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		User AccountSummary `json:"user"`
	}{User: *account})
}

func (h *JSONHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var req ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if opErr := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); opErr != nil {
		writeError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: "Password changed successfully."})
}

func (h *JSONHandler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	var req RequestEmailChangeRequest
	if !decode(w, r, &req) {
		return
	}

	message, opErr := h.service.RequestEmailChange(r.Context(), claims.Email, req.NewEmail)
	if opErr != nil {
		writeError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: message})
}

// SetupJSONAuthRoutes Helper function to set up routes
func SetupJSONAuthRoutes(r *mux.Router, h *JSONHandler, m *Middleware) {
	r.HandleFunc("/auth/signup", h.Signup).Methods("POST")
	r.HandleFunc("/auth/resend-signup-otp", h.ResendSignupOTP).Methods("POST")
	r.HandleFunc("/auth/verify-otp", h.VerifyOTP).Methods("POST")
	r.HandleFunc("/auth/login-password", h.LoginPassword).Methods("POST")
	r.HandleFunc("/auth/request-login-otp", h.RequestLoginOTP).Methods("POST")
	r.HandleFunc("/auth/forgot-password", h.ForgotPassword).Methods("POST")
	r.HandleFunc("/auth/reset-password", h.ResetPassword).Methods("POST")
	r.HandleFunc("/auth/verify-email-change", h.VerifyEmailChange).Methods("GET")

	r.HandleFunc("/auth/status", m.RequireAuth(h.Status)).Methods("GET")
	r.HandleFunc("/auth/change-password", m.RequireAuth(h.ChangePassword)).Methods("PUT")
	r.HandleFunc("/auth/request-email-change", m.RequireAuth(h.RequestEmailChange)).Methods("POST")
}
