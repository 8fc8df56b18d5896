// Package redact provides utilities for redacting sensitive information from
// strings before they are logged. It prevents the accidental leakage of
// connection strings, API keys, session tokens and wallet signatures that
// upstream errors sometimes embed in their messages.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedSignaturePlaceholder  = "[REDACTED_SIGNATURE]"
)

// Precompiled regex patterns.
var (
	// Database connection strings with embedded credentials
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`)

	// Platform API keys (pk_<public>_<secret>)
	apiKeyRegex = regexp.MustCompile(`\bpk_[A-Za-z0-9]{8,}_[A-Za-z0-9]{16,}\b`)

	// JWT token pattern - the standard three-part base64url format
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// 65-byte hex wallet signatures (e.g. SIWE signatures)
	signatureRegex = regexp.MustCompile(`0x[0-9a-fA-F]{130}`)

	patternPlaceholders = []struct {
		pattern     *regexp.Regexp
		placeholder string
	}{
		{dbConnRegex, RedactedCredentialPlaceholder},
		{apiKeyRegex, RedactedKeyPlaceholder},
		{jwtTokenRegex, RedactedJWTPlaceholder},
		{signatureRegex, RedactedSignaturePlaceholder},
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, p := range patternPlaceholders {
		result = p.pattern.ReplaceAllString(result, p.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
