package logging

import "strings"

// secretKeyPatterns contains substrings that indicate a key likely holds
// sensitive data such as SMTP or database credentials. Keys are matched
// case-insensitively.
var secretKeyPatterns = []string{
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"CREDENTIAL",
	"API_KEY",
	"PRIVATE",
}

// ShouldMask returns true if the key name suggests it contains sensitive data.
// Matching is case-insensitive.
func ShouldMask(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range secretKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// MaskValue masks a potentially sensitive string value.
// Values with 4 or fewer characters are fully masked as "********".
// Longer values show the last 4 characters: "****xxxx".
func MaskValue(value string) string {
	if len(value) <= 4 {
		return "********"
	}
	return "****" + value[len(value)-4:]
}
