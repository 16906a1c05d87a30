package models

// Side identifies one of the two match participants.
type Side string

const (
	SideOrder Side = "ORDER"
	SideChaos Side = "CHAOS"
)

// Sides lists both sides in a stable order.
var Sides = [2]Side{SideOrder, SideChaos}

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideOrder {
		return SideChaos
	}
	return SideOrder
}

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideOrder || s == SideChaos
}

// Choice is a number claimed by a side during a match. Valid choices are 1-9
// and each may be claimed by at most one side per match.
type Choice int

const (
	MinChoice Choice = 1
	MaxChoice Choice = 9
)

// Valid reports whether c lies in the claimable range.
func (c Choice) Valid() bool {
	return c >= MinChoice && c <= MaxChoice
}
