// Package plate assigns detected license plates to the vehicle tracks that
// own them
package plate

import (
	"fmt"

	"github.com/swdee/go-anpr/tracker"
)

// Containment selects the geometric rule used to decide if a vehicle box
// owns a plate box
type Containment int

const (
	// CornerContainment accepts a plate when its top-left corner lies strictly
	// inside the vehicle box
	CornerContainment Containment = 0
	// FullContainment accepts a plate only when the whole plate box lies
	// strictly inside the vehicle box
	FullContainment Containment = 1
)

// String returns the rule name as used in configuration files
func (c Containment) String() string {
	switch c {
	case CornerContainment:
		return "corner"
	case FullContainment:
		return "full"
	}
	return fmt.Sprintf("Containment(%d)", int(c))
}

// ParseContainment returns the Containment for the given configuration name
func ParseContainment(s string) (Containment, error) {
	switch s {
	case "", "corner":
		return CornerContainment, nil
	case "full":
		return FullContainment, nil
	}
	return 0, fmt.Errorf("unknown plate containment rule %q", s)
}

// Assigner maps plate detections onto the active vehicle tracks of a frame
type Assigner struct {
	rule Containment
}

// NewAssigner returns an Assigner using the given containment rule
func NewAssigner(rule Containment) *Assigner {
	return &Assigner{rule: rule}
}

// Rule returns the containment rule in use
func (a *Assigner) Rule() Containment {
	return a.rule
}

// Assign returns the track owning the plate box. Tracks are tested in the
// order given and the first containing track wins. The bool result is false
// when no track contains the plate, in which case the plate is unassigned
func (a *Assigner) Assign(plate tracker.Box,
	tracks []tracker.TrackedBox) (tracker.TrackedBox, bool) {

	for _, tb := range tracks {
		if a.contains(tb.Box, plate) {
			return tb, true
		}
	}

	return tracker.TrackedBox{}, false
}

// contains applies the containment rule
func (a *Assigner) contains(vehicle, plate tracker.Box) bool {

	if a.rule == FullContainment {
		return vehicle.ContainsBox(plate)
	}

	return vehicle.Contains(plate.X1(), plate.Y1())
}
