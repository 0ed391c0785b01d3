// Package validation checks checkout form input. All functions are pure.
package validation

import (
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fjod/storefront/internal/domain"
)

// Field names, matching the form's JSON keys.
const (
	FieldFullName     = "fullName"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldAddressLine1 = "addressLine1"
	FieldAddressLine2 = "addressLine2"
	FieldCity         = "city"
	FieldPostalCode   = "postalCode"
	FieldCountry      = "country"
	FieldAcceptTerms  = "acceptTerms"
)

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{7,20}$`)

// Errors maps a field name to its user-facing message.
type Errors map[string]string

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "invalid checkout form: " + strings.Join(parts, "; ")
}

type rule func(form domain.CheckoutForm) (string, bool)

var rules = map[string]rule{
	FieldFullName: func(f domain.CheckoutForm) (string, bool) {
		return lengthRule(f.FullName, 2, 100,
			"Enter your full name",
			"Full name must be at least 2 characters",
			"Full name is too long")
	},
	FieldEmail: func(f domain.CheckoutForm) (string, bool) {
		if !IsEmail(strings.TrimSpace(f.Email)) {
			return "Enter a valid email address", false
		}
		return "", true
	},
	FieldPhone: func(f domain.CheckoutForm) (string, bool) {
		phone := strings.TrimSpace(f.Phone)
		if phone == "" {
			return "Enter your phone number", false
		}
		if !phonePattern.MatchString(phone) {
			return "Enter a valid phone number (7-20 digits)", false
		}
		return "", true
	},
	FieldAddressLine1: func(f domain.CheckoutForm) (string, bool) {
		return lengthRule(f.AddressLine1, 3, 100,
			"Enter your address",
			"Address line 1 must be at least 3 characters",
			"Address is too long")
	},
	FieldAddressLine2: func(f domain.CheckoutForm) (string, bool) {
		if runeLen(f.AddressLine2) > 100 {
			return "Address is too long", false
		}
		return "", true
	},
	FieldCity: func(f domain.CheckoutForm) (string, bool) {
		return lengthRule(f.City, 1, 50,
			"Enter your city",
			"Enter your city",
			"City name is too long")
	},
	FieldPostalCode: func(f domain.CheckoutForm) (string, bool) {
		return lengthRule(f.PostalCode, 2, 20,
			"Enter your postal code",
			"Postal code must be at least 2 characters",
			"Postal code is too long")
	},
	FieldCountry: func(f domain.CheckoutForm) (string, bool) {
		return lengthRule(f.Country, 2, 50,
			"Enter your country",
			"Enter your country",
			"Country name is too long")
	},
	FieldAcceptTerms: func(f domain.CheckoutForm) (string, bool) {
		if !f.AcceptTerms {
			return "You must accept the terms and conditions to continue", false
		}
		return "", true
	},
}

// ValidateCheckoutForm returns every failing field at once, or nil.
func ValidateCheckoutForm(form domain.CheckoutForm) Errors {
	var errs Errors
	for field, check := range rules {
		if msg, ok := check(form); !ok {
			if errs == nil {
				errs = Errors{}
			}
			errs[field] = msg
		}
	}
	return errs
}

// ValidateField checks a single field, as done when the field loses focus.
// Unknown field names are reported as valid.
func ValidateField(field string, form domain.CheckoutForm) (string, bool) {
	check, ok := rules[field]
	if !ok {
		return "", true
	}
	return check(form)
}

func IsKnownField(field string) bool {
	_, ok := rules[field]
	return ok
}

// IsEmail accepts a bare RFC 5322 address whose domain has at least one dot.
func IsEmail(s string) bool {
	if s == "" || runeLen(s) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 {
		return false
	}
	domainPart := s[at+1:]
	if !strings.Contains(domainPart, ".") || strings.HasPrefix(domainPart, ".") || strings.HasSuffix(domainPart, ".") {
		return false
	}
	return !strings.HasPrefix(domainPart, "[")
}

// lengthRule validates the trimmed value's length in characters.
func lengthRule(value string, minLen, maxLen int, blankMsg, shortMsg, longMsg string) (string, bool) {
	n := runeLen(strings.TrimSpace(value))
	switch {
	case n == 0:
		return blankMsg, false
	case n < minLen:
		return shortMsg, false
	case n > maxLen:
		return longMsg, false
	}
	return "", true
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
