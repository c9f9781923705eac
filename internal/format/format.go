// Package format implements the Brazilian document and phone helpers used
// when clients are created, imported and exported.
package format

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Digits strips every non-digit rune from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCPF checks the two CPF check digits. Input may carry a mask.
func ValidateCPF(cpf string) bool {
	d := Digits(cpf)
	if len(d) != 11 {
		return false
	}
	if strings.Count(d, d[:1]) == 11 {
		return false
	}
	return checkDigit(d[:9], 10) == int(d[9]-'0') &&
		checkDigit(d[:10], 11) == int(d[10]-'0')
}

func checkDigit(digits string, weight int) int {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * (weight - i)
	}
	r := sum * 10 % 11
	if r == 10 {
		return 0
	}
	return r
}

// FormatCPF renders 11 digits as 000.000.000-00.
func FormatCPF(cpf string) string {
	d := Digits(cpf)
	if len(d) != 11 {
		return cpf
	}
	return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
}

// FormatTelefone renders mobile (11 digits) and landline (10 digits) numbers.
func FormatTelefone(tel string) string {
	d := Digits(tel)
	switch len(d) {
	case 11:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	case 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	default:
		return tel
	}
}

// CPFRule validates a CPF field inside validation.ValidateStruct.
var CPFRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !ValidateCPF(s) {
		return errors.New("must be a valid CPF")
	}
	return nil
})
