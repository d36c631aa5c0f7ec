// Package qrbill builds Swiss QR-bill payment references and payloads.
package qrbill

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ReferenceLength is the length of a QR reference including its check digit.
const ReferenceLength = 27

// BaseLength is the number of digits checksummed into a QR reference.
const BaseLength = ReferenceLength - 1

// ErrInvalidInput is returned when a reference base contains anything but digits.
var ErrInvalidInput = errors.New("invalid reference input")

// carryTable is the MOD 10 recursive table from the QR-bill implementation guidelines.
var carryTable = [10]int{0, 9, 4, 6, 8, 2, 7, 1, 3, 5}

// CheckDigit computes the MOD 10 recursive check digit of a numeric string.
func CheckDigit(base string) (int, error) {
	if base == "" {
		return 0, errors.Wrap(ErrInvalidInput, "reference base is empty")
	}

	carry := 0
	for i, r := range base {
		if r < '0' || r > '9' {
			return 0, errors.Wrapf(ErrInvalidInput, "non-digit %q at position %d", r, i)
		}
		carry = carryTable[(int(r-'0')+carry)%10]
	}

	return (10 - carry) % 10, nil
}

// Reference appends the check digit to base.
func Reference(base string) (string, error) {
	digit, err := CheckDigit(base)
	if err != nil {
		return "", err
	}
	return base + string(rune('0'+digit)), nil
}

// PadBase left-pads a numeric invoice number with zeros up to width.
func PadBase(number string, width int) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", errors.Wrap(ErrInvalidInput, "invoice number is empty")
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return "", errors.Wrapf(ErrInvalidInput, "invoice number %q is not numeric", number)
		}
	}
	if len(number) > width {
		return "", errors.Wrapf(ErrInvalidInput, "invoice number %q longer than %d digits", number, width)
	}
	return strings.Repeat("0", width-len(number)) + number, nil
}

// ReferenceFor derives the 27 digit QR reference of an invoice number.
func ReferenceFor(number string) (string, error) {
	base, err := PadBase(number, BaseLength)
	if err != nil {
		return "", err
	}
	return Reference(base)
}

// ValidateReference checks that ref ends with the check digit of its prefix.
func ValidateReference(ref string) error {
	ref = strings.ReplaceAll(ref, " ", "")
	if len(ref) < 2 {
		return errors.Wrap(ErrInvalidInput, "reference too short")
	}

	base, last := ref[:len(ref)-1], ref[len(ref)-1]
	digit, err := CheckDigit(base)
	if err != nil {
		return err
	}
	if last < '0' || last > '9' {
		return errors.Wrapf(ErrInvalidInput, "non-digit check digit %q", last)
	}
	if int(last-'0') != digit {
		return errors.Wrap(ErrInvalidInput, fmt.Sprintf("check digit %c does not match expected %d", last, digit))
	}
	return nil
}

// FormatReference groups a reference in blocks of five digits counted from the right,
// the way it is printed on the payment slip.
func FormatReference(ref string) string {
	ref = strings.ReplaceAll(ref, " ", "")
	if len(ref) <= 5 {
		return ref
	}

	head := len(ref) % 5
	var b strings.Builder
	if head > 0 {
		b.WriteString(ref[:head])
	}
	for i := head; i < len(ref); i += 5 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(ref[i : i+5])
	}
	return b.String()
}
