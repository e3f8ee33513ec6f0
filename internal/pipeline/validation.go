package pipeline

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

var (
	errMissingCode    = errors.New("missing external code")
	errNegativeAmount = errors.New("negative amount")
	errMissingTime    = errors.New("missing occurrence time")
)

// ValidateTransaction checks a canonical record before it is written.
func ValidateTransaction(tx domain.Transaction) error {
	if tx.ExternalCode == "" {
		return errMissingCode
	}
	if tx.Amount.IsNegative() {
		return errNegativeAmount
	}
	if tx.OccurredAt.IsZero() {
		return errMissingTime
	}
	if n := utf8.RuneCountInString(tx.RawDescription); n > domain.MaxDescriptionLength {
		return fmt.Errorf("description too long: %d runes", n)
	}
	return nil
}
