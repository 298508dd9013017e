package utils

// MaskSecret keeps the first four characters of a token or key for log lines.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "*****"
	}
	return s[:4] + "*****"
}
