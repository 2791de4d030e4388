package valueobject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paemuri/brdoc"
)

// ErrInvalidTaxID is returned when a tax identifier fails format or check-digit validation
var ErrInvalidTaxID = errors.New("invalid tax id")

// TaxID is a Brazilian individual taxpayer number (CPF).
// It is stored as the 11 bare digits.
type TaxID struct {
	digits string
}

// ParseTaxID validates a CPF given either bare ("12345678909") or
// formatted ("123.456.789-09") and returns the value object
func ParseTaxID(raw string) (TaxID, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == ' ':
		default:
			return TaxID{}, fmt.Errorf("%w: unexpected character %q", ErrInvalidTaxID, r)
		}
	}
	digits := b.String()
	if len(digits) != 11 {
		return TaxID{}, fmt.Errorf("%w: expected 11 digits, got %d", ErrInvalidTaxID, len(digits))
	}
	if !brdoc.IsCPF(digits) {
		return TaxID{}, fmt.Errorf("%w: failed CPF validation", ErrInvalidTaxID)
	}
	return TaxID{digits: digits}, nil
}

// Digits returns the 11 bare digits
func (t TaxID) Digits() string {
	return t.digits
}

// IsZero reports whether the tax id is unset
func (t TaxID) IsZero() bool {
	return t.digits == ""
}

// String returns the formatted representation (000.000.000-00)
func (t TaxID) String() string {
	if len(t.digits) != 11 {
		return t.digits
	}
	return t.digits[0:3] + "." + t.digits[3:6] + "." + t.digits[6:9] + "-" + t.digits[9:11]
}
