package email

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender delivers credential artifacts over SMTP. It satisfies auth.Notifier.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailSender(host string, port int, username, password, from string) *Sender {
	dialer := gomail.NewDialer(host, port, username, password)
	return &Sender{
		dialer: dialer,
		from:   from,
	}
}

func (s *Sender) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	return s.dialer.DialAndSend(m)
}

func (s *Sender) SendOTP(to, code string) error {
	subject := "Your OTP Code"
	body := fmt.Sprintf("Your OTP is %s. It expires in 5 minutes.", code)
	return s.sendEmail(to, subject, body)
}

func (s *Sender) SendPasswordResetLink(to, resetLink string) error {
	subject := "Password Reset Request"
	body := fmt.Sprintf(
		"You are receiving this because you (or someone else) has requested the reset of the password for your account.\n\n"+
			"Please click on the following link, or paste this into your browser to complete the process:\n%s\n\n"+
			"If you did not request this, please ignore this email and your password will remain unchanged.",
		resetLink)
	return s.sendEmail(to, subject, body)
}

func (s *Sender) SendEmailChangeLink(to, verifyLink string) error {
	subject := "Confirm Your New Email Address"
	body := fmt.Sprintf(
		"A request was made to use this address for your VOAT account.\n\n"+
			"Please click on the following link to confirm the change:\n%s\n\n"+
			"If you did not request this, you can ignore this email.",
		verifyLink)
	return s.sendEmail(to, subject, body)
}
