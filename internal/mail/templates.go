package mail

import (
	"fmt"
	"html/template"
	"strings"
)

// Subjects for the two transactional mails.
const (
	SubjectVerifyEmail = "Verify your email for registration"
	SubjectOTP         = "OTP for Verification"
)

var verifyTmpl = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">
    <h2>Verify your email</h2>
    <p>Hi {{.Email}},</p>
    <p>Click the button below to finish creating your account. The link
    expires in {{.ExpiryMinutes}} minutes.</p>
    <p><a href="{{.Link}}"
          style="display: inline-block; padding: 10px 20px; background: #2563eb; color: #fff; text-decoration: none; border-radius: 6px;">
      Verify Email
    </a></p>
    <p>If you did not register, you can ignore this mail.</p>
  </body>
</html>`))

var otpTmpl = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">
    <h2>Your one-time code</h2>
    <p>Hi {{.Email}},</p>
    <p>Use this code to finish signing in. It expires in
    {{.ExpiryMinutes}} minutes.</p>
    <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold;">{{.OTP}}</p>
    <p>If you did not try to sign in, change your password.</p>
  </body>
</html>`))

// VerifyEmailHTML renders the registration verification mail body.
func VerifyEmailHTML(email, link string, expiryMinutes int) (string, error) {
	var buf strings.Builder
	err := verifyTmpl.Execute(&buf, struct {
		Email, Link   string
		ExpiryMinutes int
	}{email, link, expiryMinutes})
	if err != nil {
		return "", fmt.Errorf("render verify mail: %w", err)
	}
	return buf.String(), nil
}

// OTPHTML renders the login OTP mail body.
func OTPHTML(email, otp string, expiryMinutes int) (string, error) {
	var buf strings.Builder
	err := otpTmpl.Execute(&buf, struct {
		Email, OTP    string
		ExpiryMinutes int
	}{email, otp, expiryMinutes})
	if err != nil {
		return "", fmt.Errorf("render otp mail: %w", err)
	}
	return buf.String(), nil
}
