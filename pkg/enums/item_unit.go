package enums

import "fmt"

// ItemUnit defines the stocking units. All units are counted, so quantities
// are whole numbers.
type ItemUnit string

const (
	ItemUnitPiece  ItemUnit = "piece"
	ItemUnitBox    ItemUnit = "box"
	ItemUnitBottle ItemUnit = "bottle"
	ItemUnitStrip  ItemUnit = "strip"
	ItemUnitVial   ItemUnit = "vial"
	ItemUnitTube   ItemUnit = "tube"
)

var validItemUnits = []ItemUnit{
	ItemUnitPiece,
	ItemUnitBox,
	ItemUnitBottle,
	ItemUnitStrip,
	ItemUnitVial,
	ItemUnitTube,
}

// String implements fmt.Stringer.
func (u ItemUnit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known ItemUnit.
func (u ItemUnit) IsValid() bool {
	for _, candidate := range validItemUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseItemUnit converts raw input into an ItemUnit.
func ParseItemUnit(value string) (ItemUnit, error) {
	for _, candidate := range validItemUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item unit %q", value)
}
