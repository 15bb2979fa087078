package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyEmailHTML(t *testing.T) {
	html, err := VerifyEmailHTML("ann@x.com", "https://app.example.com/verify/tok123", 5)
	require.NoError(t, err)
	assert.Contains(t, html, "ann@x.com")
	assert.Contains(t, html, "https://app.example.com/verify/tok123")
	assert.Contains(t, html, "5 minutes")
}

func TestOTPHTML(t *testing.T) {
	html, err := OTPHTML("ann@x.com", "123456", 5)
	require.NoError(t, err)
	assert.Contains(t, html, "123456")
	assert.Contains(t, html, "ann@x.com")
}

func TestTemplatesEscapeInput(t *testing.T) {
	html, err := VerifyEmailHTML(`<script>alert(1)</script>`, "https://app.example.com/verify/t", 5)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}
