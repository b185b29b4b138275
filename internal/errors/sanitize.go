package errors

import "regexp"

// Patterns for material that must never appear in an outbound error
// message: GitHub tokens, connection strings with embedded credentials,
// and environment variable assignments.
var (
	tokenPattern  = regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36,}`)
	connPattern   = regexp.MustCompile(`\w+://[^\s]+@[^\s]+`)
	envVarPattern = regexp.MustCompile(`\b[A-Z_]{2,}=[^\s]+`)
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]+`)
)

// Sanitize strips credential material from a message before it is
// allowed to leave the core in a response body.
func Sanitize(msg string) string {
	msg = tokenPattern.ReplaceAllString(msg, "[REDACTED_TOKEN]")
	msg = bearerPattern.ReplaceAllString(msg, "[REDACTED_TOKEN]")
	msg = connPattern.ReplaceAllString(msg, "[REDACTED_CONNECTION_STRING]")
	msg = envVarPattern.ReplaceAllString(msg, "[REDACTED_ENV_VAR]")
	return msg
}
