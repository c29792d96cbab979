package util

import "strings"

// ToE164 normalizes a raw phone value into E.164 form (+<cc><number>).
// Non-digit characters are stripped except a leading plus. When the value
// carries no country code, defaultCC (digits only, e.g. "244") is
// prefixed. Returns "" when nothing usable remains.
func ToE164(raw, defaultCC string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range raw {
		if i == 0 && r == '+' {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if digits == "" || digits == "+" {
		return ""
	}
	if strings.HasPrefix(digits, "+") {
		return digits
	}

	cc := strings.TrimPrefix(defaultCC, "+")
	if cc != "" && strings.HasPrefix(digits, cc) {
		return "+" + digits
	}
	return "+" + cc + digits
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail performs a basic shape check: one @, non-empty local part,
// domain with a dot.
func IsValidEmail(email string) bool {
	normalized := NormalizeEmail(email)
	parts := strings.Split(normalized, "@")
	if len(parts) != 2 {
		return false
	}
	local, domain := parts[0], parts[1]
	return len(local) > 0 && len(domain) > 2 && strings.Contains(domain, ".")
}
