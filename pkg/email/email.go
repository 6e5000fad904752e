package email

import (
	"strings"
	"unicode"
)

// Fold normalizes an email address for storage and matching: trimmed and
// case-folded. Uniqueness of customers is defined over the folded form.
func Fold(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasAllowedDomain reports whether the address ends with one of the allowed
// domain suffixes. Matching is case-insensitive and suffix-based, so ".gov"
// admits "procurement.af.gov".
func HasAllowedDomain(email string, suffixes []string) bool {
	folded := Fold(email)
	at := strings.LastIndexByte(folded, '@')
	if at <= 0 || at == len(folded)-1 {
		return false
	}
	domain := folded[at+1:]
	for _, suffix := range suffixes {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		if strings.HasSuffix(domain, suffix) || domain == suffix[1:] {
			return true
		}
	}
	return false
}

// DeriveDisplayName builds a presentable customer name from the local part of
// an email address. Used when a customer record is created at first checkout
// without an explicit name.
func DeriveDisplayName(email string) string {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Customer"
	}

	for i, part := range parts {
		parts[i] = capitalize(part)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
