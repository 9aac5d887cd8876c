package users

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Rule is one sign-up requirement and whether the submission meets it.
type Rule struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	OK    bool   `json:"ok"`
}

// ValidationError reports the first unmet sign-up rule along with the full checklist.
type ValidationError struct {
	Rule      string
	Message   string
	Checklist []Rule
}

func (e *ValidationError) Error() string { return e.Message }

// Is reports ErrInvalidInput for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

var ruleMessages = map[string]string{
	"length": "Password must be at least 8 characters.",
	"upper":  "Password must contain an uppercase letter.",
	"lower":  "Password must contain a lowercase letter.",
	"digit":  "Password must contain a digit.",
	"symbol": "Password must contain a symbol.",
	"match":  "Passwords do not match",
	"email":  "Enter a valid email address.",
}

// CheckSignup evaluates every sign-up rule in display order.
func CheckSignup(email, password, confirm string) []Rule {
	return []Rule{
		{Key: "length", Label: "8+ Characters", OK: len([]rune(password)) >= 8},
		{Key: "upper", Label: "Uppercase", OK: strings.ContainsFunc(password, isASCIIUpper)},
		{Key: "lower", Label: "Lowercase", OK: strings.ContainsFunc(password, isASCIILower)},
		{Key: "digit", Label: "One Digit", OK: strings.ContainsFunc(password, isASCIIDigit)},
		{Key: "symbol", Label: "One Symbol", OK: strings.ContainsFunc(password, isSymbol)},
		{Key: "match", Label: "Passwords match", OK: password != "" && password == confirm},
		{Key: "email", Label: "Valid email", OK: emailPattern.MatchString(email)},
	}
}

// ValidateSignup returns a *ValidationError for the first failing rule, or nil.
func ValidateSignup(email, password, confirm string) error {
	checklist := CheckSignup(email, password, confirm)
	for _, r := range checklist {
		if !r.OK {
			return &ValidationError{Rule: r.Key, Message: ruleMessages[r.Key], Checklist: checklist}
		}
	}
	return nil
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

func isSymbol(r rune) bool {
	return !isASCIIUpper(r) && !isASCIILower(r) && !isASCIIDigit(r)
}
