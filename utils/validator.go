// utils/validator.go - Input validation
package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	mobileRegex = regexp.MustCompile(`^09[0-9]{9}$`)
	digitsRegex = regexp.MustCompile(`^[0-9]+$`)
)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidateMobile accepts an 11 digit mobile number starting with 09.
func ValidateMobile(mobile string) bool {
	return mobileRegex.MatchString(NormalizeDigits(strings.TrimSpace(mobile)))
}

// ValidateNationalID checks the length and check digit of a national code.
func ValidateNationalID(raw string) bool {
	code := NormalizeDigits(strings.TrimSpace(raw))
	if len(code) != 10 || !digitsRegex.MatchString(code) {
		return false
	}
	if strings.Count(code, code[:1]) == len(code) {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(code[i]-'0') * (10 - i)
	}
	check := int(code[9] - '0')
	r := sum % 11
	if r < 2 {
		return check == r
	}
	return check == 11-r
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}

var digitReplacer = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// NormalizeDigits converts Persian and Arabic-Indic digits to ASCII.
func NormalizeDigits(s string) string {
	return digitReplacer.Replace(s)
}

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// SanitizeFilename keeps the base name and replaces anything outside
// letters, digits, dot, dash and underscore.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(SanitizeInput(name), "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	cleaned := unsafeFilenameChars.ReplaceAllString(base, "_")
	cleaned = strings.Trim(cleaned, "._")
	if len(cleaned) > 150 {
		cleaned = cleaned[:150]
	}
	return cleaned
}
