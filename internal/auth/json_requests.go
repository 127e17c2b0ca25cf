package auth

type SignupRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	ResumeRef string `json:"resumeRef"`
}

type ResendSignupOTPRequest struct {
	Email     string `json:"email"`
	TempToken string `json:"tempToken"`
}

type VerifyOTPRequest struct {
	Type      string `json:"type"`
	Email     string `json:"email"`
	OTP       string `json:"otp"`
	TempToken string `json:"tempToken"`
}

type LoginPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RequestLoginOTPRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type RequestEmailChangeRequest struct {
	NewEmail string `json:"newEmail"`
}
