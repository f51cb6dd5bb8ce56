package enums

import "fmt"

// MovementType maps to the cash_movement_type_enum enum in Postgres.
// Direction is fixed here once: cash_in adds to the drawer, everything else
// removes from it. Movement amounts are always positive.
type MovementType string

const (
	MovementTypeCashIn   MovementType = "cash_in"
	MovementTypeCashOut  MovementType = "cash_out"
	MovementTypeCashDrop MovementType = "cash_drop"
	MovementTypeExpense  MovementType = "expense"
)

var validMovementTypes = []MovementType{
	MovementTypeCashIn,
	MovementTypeCashOut,
	MovementTypeCashDrop,
	MovementTypeExpense,
}

// IsValid reports whether the value matches the canonical movement type enum.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Deducts reports whether movements of this type reduce the expected drawer
// balance. Cash drops deduct even though they are not expenses.
func (t MovementType) Deducts() bool {
	return t == MovementTypeCashOut || t == MovementTypeCashDrop || t == MovementTypeExpense
}

// ParseMovementType converts raw input into MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}

// MovementTypes returns the canonical movement types in declaration order.
func MovementTypes() []MovementType {
	out := make([]MovementType, len(validMovementTypes))
	copy(out, validMovementTypes)
	return out
}
