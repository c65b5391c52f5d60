package phase

import (
	"encoding/json"
	"errors"
	"sort"
)

// Demand holds a non-negative vehicle count per direction.
// Being indexed by Direction, it cannot carry an unknown key.
type Demand [NumDirections]int

// Of returns the count for d.
func (dm Demand) Of(d Direction) int {
	return dm[d]
}

// Total returns the sum over all directions.
func (dm Demand) Total() int {
	total := 0
	for _, c := range dm {
		total += c
	}
	return total
}

// Map returns the demand keyed by direction name.
func (dm Demand) Map() map[string]int {
	out := make(map[string]int, NumDirections)
	for _, d := range Directions {
		out[d.String()] = dm[d]
	}
	return out
}

// MarshalJSON encodes the demand as an object keyed by direction name.
func (dm Demand) MarshalJSON() ([]byte, error) {
	return json.Marshal(dm.Map())
}

// ParseDemand validates a detector result keyed by direction name.
// Unknown keys and negative counts reject the whole input; missing
// directions count as zero.
func ParseDemand(raw map[string]int) (Demand, error) {
	var dm Demand
	for _, name := range sortedKeys(raw) {
		d, err := ParseDirection(name)
		if err != nil {
			return Demand{}, err
		}
		count := raw[name]
		if count < 0 {
			return Demand{}, NewCountError(d, count)
		}
		dm[d] = count
	}
	return dm, nil
}

// SanitizeDemand is the lenient counterpart of ParseDemand used by
// adapters that must keep the loop running: unknown keys are dropped and
// negative counts become zero. The returned error joins every problem
// found and is meant for logging; the Demand is always usable.
func SanitizeDemand(raw map[string]int) (Demand, error) {
	var dm Demand
	var errs []error
	for _, name := range sortedKeys(raw) {
		d, err := ParseDirection(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		count := raw[name]
		if count < 0 {
			errs = append(errs, NewCountError(d, count))
			count = 0
		}
		dm[d] = count
	}
	return dm, errors.Join(errs...)
}

func sortedKeys(raw map[string]int) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
