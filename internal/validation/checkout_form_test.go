package validation

import (
	"strings"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() domain.CheckoutForm {
	return domain.CheckoutForm{
		FullName:     "Jane Wanjiku",
		Email:        "jane@example.com",
		Phone:        "+254 712 345 678",
		AddressLine1: "12 Kenyatta Avenue",
		City:         "Nairobi",
		PostalCode:   "00100",
		Country:      "Kenya",
		AcceptTerms:  true,
	}
}

func TestValidateCheckoutForm_Valid(t *testing.T) {
	assert.Nil(t, ValidateCheckoutForm(validForm()))
}

func TestValidateCheckoutForm_EmptyFormReportsEveryRequiredField(t *testing.T) {
	errs := ValidateCheckoutForm(domain.CheckoutForm{})

	require.NotNil(t, errs)
	assert.Regexp(t, `Enter your full name`, errs[FieldFullName])
	assert.Regexp(t, `(?i)enter a valid email`, errs[FieldEmail])
	for _, f := range []string{FieldPhone, FieldAddressLine1, FieldCity, FieldPostalCode, FieldCountry, FieldAcceptTerms} {
		assert.Contains(t, errs, f)
	}
	assert.NotContains(t, errs, FieldAddressLine2)
}

func TestValidateCheckoutForm_Lengths(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *domain.CheckoutForm)
		field   string
		message string
	}{
		{"short name", func(f *domain.CheckoutForm) { f.FullName = "J" }, FieldFullName, "Full name must be at least 2 characters"},
		{"long name", func(f *domain.CheckoutForm) { f.FullName = strings.Repeat("a", 101) }, FieldFullName, "Full name is too long"},
		{"whitespace name", func(f *domain.CheckoutForm) { f.FullName = "   " }, FieldFullName, "Enter your full name"},
		{"short address", func(f *domain.CheckoutForm) { f.AddressLine1 = "ab" }, FieldAddressLine1, "Address line 1 must be at least 3 characters"},
		{"long address", func(f *domain.CheckoutForm) { f.AddressLine1 = strings.Repeat("a", 101) }, FieldAddressLine1, "Address is too long"},
		{"long address line 2", func(f *domain.CheckoutForm) { f.AddressLine2 = strings.Repeat("a", 101) }, FieldAddressLine2, "Address is too long"},
		{"long city", func(f *domain.CheckoutForm) { f.City = strings.Repeat("a", 51) }, FieldCity, "City name is too long"},
		{"short postal code", func(f *domain.CheckoutForm) { f.PostalCode = "1" }, FieldPostalCode, "Postal code must be at least 2 characters"},
		{"long postal code", func(f *domain.CheckoutForm) { f.PostalCode = strings.Repeat("1", 21) }, FieldPostalCode, "Postal code is too long"},
		{"short country", func(f *domain.CheckoutForm) { f.Country = "K" }, FieldCountry, "Enter your country"},
		{"long country", func(f *domain.CheckoutForm) { f.Country = strings.Repeat("k", 51) }, FieldCountry, "Country name is too long"},
		{"terms", func(f *domain.CheckoutForm) { f.AcceptTerms = false }, FieldAcceptTerms, "You must accept the terms and conditions to continue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)

			errs := ValidateCheckoutForm(form)

			require.Len(t, errs, 1)
			assert.Equal(t, tt.message, errs[tt.field])
		})
	}
}

func TestValidateCheckoutForm_BoundariesPass(t *testing.T) {
	form := validForm()
	form.FullName = "Jo"
	form.AddressLine1 = "1 A"
	form.AddressLine2 = strings.Repeat("b", 100)
	form.City = "X"
	form.PostalCode = strings.Repeat("9", 20)
	form.Country = "KE"

	assert.Nil(t, ValidateCheckoutForm(form))
}

func TestValidateCheckoutForm_CountsCharactersNotBytes(t *testing.T) {
	form := validForm()
	form.FullName = strings.Repeat("é", 100)

	assert.Nil(t, ValidateCheckoutForm(form))
}

func TestPhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+254712345678", true},
		{"0712 345 678", true},
		{"(020) 123-4567", true},
		{"1234567", true},
		{"123456", false},
		{"+1 234 567 890 123 456 78", false},
		{"phone123", false},
		{"++254712345678", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			form := validForm()
			form.Phone = tt.phone
			_, ok := ValidateField(FieldPhone, form)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestIsEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"jane@example.com", true},
		{"jane.doe+orders@shop.co.ke", true},
		{"jane@localhost", false},
		{"jane", false},
		{"@example.com", false},
		{"Jane <jane@example.com>", false},
		{"jane@example.", false},
		{"jane@.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsEmail(tt.email))
		})
	}
}

func TestValidateField(t *testing.T) {
	form := validForm()
	form.Email = "not-an-email"

	msg, ok := ValidateField(FieldEmail, form)
	assert.False(t, ok)
	assert.Equal(t, "Enter a valid email address", msg)

	_, ok = ValidateField(FieldFullName, form)
	assert.True(t, ok)

	_, ok = ValidateField("favouriteColour", form)
	assert.True(t, ok)
	assert.False(t, IsKnownField("favouriteColour"))
}

func TestErrors_Error(t *testing.T) {
	errs := Errors{FieldEmail: "Enter a valid email address", FieldCity: "Enter your city"}
	assert.Equal(t, "invalid checkout form: city: Enter your city; email: Enter a valid email address", errs.Error())
}
