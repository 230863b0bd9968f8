// Package validation holds the input rules shared by the HTTP request types.
package validation

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"

	"github.com/amesupakorn/eLottery/internal/ledger"
)

// MaxQuantity is the largest number of ticket numbers one purchase may take.
const MaxQuantity = 10000

var drawCodeRe = regexp.MustCompile(`^\d{8}-\d{3}$`)

var (
	// Email requires a well-formed address.
	Email = []validation.Rule{validation.Required, is.Email, validation.Length(3, 254)}

	// Password requires 8 to 72 bytes, the range bcrypt accepts.
	Password = []validation.Rule{validation.Required, validation.Length(8, 72)}

	// Quantity bounds a ticket purchase.
	Quantity = []validation.Rule{validation.Required, validation.Min(1), validation.Max(MaxQuantity)}

	// DrawCode matches YYYYMMDD-NNN.
	DrawCode = validation.Match(drawCodeRe).Error("must look like YYYYMMDD-NNN")

	// Amount requires a positive money value with at most two decimal places.
	Amount = validation.By(checkAmount)
)

func checkAmount(value interface{}) error {
	var d decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		d = v
	case *decimal.Decimal:
		if v == nil {
			return errors.New("is required")
		}
		d = *v
	default:
		return errors.New("must be a decimal amount")
	}
	return ledger.ValidateAmount(d)
}

// IsDrawCode reports whether s is a well-formed draw code.
func IsDrawCode(s string) bool {
	return drawCodeRe.MatchString(s)
}
