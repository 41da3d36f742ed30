package utils

import (
	"time"

	"github.com/pquerna/otp/totp"
)

const totpIssuer = "TrackIt"

// GenerateTOTPSecret returns the base32 secret and its otpauth:// URL.
func GenerateTOTPSecret(email string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func VerifyTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}

// TOTPCode returns the code valid at t. Used by tests and the CLI.
func TOTPCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCode(secret, t)
}
