package domain

import "strings"

// Direction is the transaction kind. Exactly one kind, DirectionReceived,
// is treated as income.
type Direction string

const (
	DirectionReceived     Direction = "C2B"      // received-from-customer
	DirectionPaidBusiness Direction = "B2B"      // paid-to-business
	DirectionPaidPerson   Direction = "P2P"      // paid-to-person
	DirectionWithdrawal   Direction = "B2C"      // withdrawal
	DirectionBillPayment  Direction = "PAYBILL"  // bill-payment
	DirectionGoodsPayment Direction = "BUYGOODS" // goods-payment
)

var directionNames = map[Direction]string{
	DirectionReceived:     "received-from-customer",
	DirectionPaidBusiness: "paid-to-business",
	DirectionPaidPerson:   "paid-to-person",
	DirectionWithdrawal:   "withdrawal",
	DirectionBillPayment:  "bill-payment",
	DirectionGoodsPayment: "goods-payment",
}

// Directions lists every known kind in a fixed order.
func Directions() []Direction {
	return []Direction{
		DirectionReceived,
		DirectionPaidBusiness,
		DirectionPaidPerson,
		DirectionWithdrawal,
		DirectionBillPayment,
		DirectionGoodsPayment,
	}
}

// IsIncome reports whether d is the income kind.
func (d Direction) IsIncome() bool {
	return d == DirectionReceived
}

// Known reports whether d is one of the six defined kinds.
func (d Direction) Known() bool {
	_, ok := directionNames[d]
	return ok
}

// Name returns the descriptive name, or the raw code when unknown.
func (d Direction) Name() string {
	if n, ok := directionNames[d]; ok {
		return n
	}
	return string(d)
}

// ParseDirection accepts either a wire code ("PAYBILL") or a descriptive
// name ("bill-payment"), case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	code := Direction(strings.ToUpper(s))
	if code.Known() {
		return code, true
	}
	lower := strings.ToLower(s)
	for d, name := range directionNames {
		if name == lower {
			return d, true
		}
	}
	return "", false
}
