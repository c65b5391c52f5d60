// Package phase implements the signal-phase state machine that decides which
// approach of a four-way intersection holds the green signal.
package phase

import (
	"strings"
)

// Direction is one of the four fixed approaches of the intersection.
// The numeric order is used only for deterministic rotation and tie-breaks.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// NumDirections is the size of the closed Direction set.
const NumDirections = 4

// Directions lists every direction in enumeration order.
var Directions = [NumDirections]Direction{North, South, East, West}

var directionNames = [NumDirections]string{"north", "south", "east", "west"}

// String returns the lower-case name of the direction.
func (d Direction) String() string {
	if !d.Valid() {
		return "unknown"
	}
	return directionNames[d]
}

// Valid reports whether d belongs to the closed set.
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

// ParseDirection converts a name such as "north" or "West" into a Direction.
func ParseDirection(name string) (Direction, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i, n := range directionNames {
		if n == normalized {
			return Direction(i), nil
		}
	}
	return 0, NewDirectionError(name)
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, NewDirectionError(d.String())
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
