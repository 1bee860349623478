// Package filter holds the mutable selection state of one open dataset.
//
// A State is a flat record of five dimensions. Views read it; only the
// selection controller writes it. Every write reports what actually changed
// so that no-op selections cost nothing downstream.
package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Dimension names one filter field.
type Dimension string

const (
	DimSessionID          Dimension = "sessionId"
	DimInitialLevelID     Dimension = "initialLevelId"
	DimFinalLevelID       Dimension = "finalLevelId"
	DimElectronCount      Dimension = "electronCount"
	DimElectronCountDelta Dimension = "electronCountDelta"
)

// UnsetID is the external sentinel for an unselected id or count.
const UnsetID = -1

var allDimensions = []Dimension{
	DimSessionID,
	DimInitialLevelID,
	DimFinalLevelID,
	DimElectronCount,
	DimElectronCountDelta,
}

// sessionScoped are cleared whenever the session changes.
var sessionScoped = []Dimension{
	DimInitialLevelID,
	DimFinalLevelID,
	DimElectronCount,
	DimElectronCountDelta,
}

// Dimensions returns every dimension in a fixed order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(allDimensions))
	copy(out, allDimensions)
	return out
}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	for _, k := range allDimensions {
		if k == d {
			return true
		}
	}
	return false
}

// Value is a dimension value that is either set to an integer or unset.
type Value struct {
	v   int
	set bool
}

// Of returns a set value.
func Of(v int) Value { return Value{v: v, set: true} }

// Unset returns the unset value.
func Unset() Value { return Value{} }

// Get returns the integer and whether it is set.
func (v Value) Get() (int, bool) { return v.v, v.set }

// IsSet reports whether v carries a value.
func (v Value) IsSet() bool { return v.set }

// Or returns the value, or def when unset.
func (v Value) Or(def int) int {
	if !v.set {
		return def
	}
	return v.v
}

func (v Value) String() string {
	if !v.set {
		return "unset"
	}
	return strconv.Itoa(v.v)
}

// MarshalJSON encodes unset as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(v.v)), nil
}

// UnmarshalJSON accepts an integer or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = Unset()
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("filter value %s: %w", s, err)
	}
	*v = Of(n)
	return nil
}

// Reader is read access to filter state.
type Reader interface {
	Value(d Dimension) Value
}

// Change describes the outcome of one mutation.
type Change struct {
	Dimension Dimension
	Previous  Value
	Current   Value
	// Cleared lists dimensions reset as a side effect of the mutation.
	Cleared []Dimension
}

// Changed reports whether the mutation altered any dimension.
func (c Change) Changed() bool {
	return c.Previous != c.Current || len(c.Cleared) > 0
}

// Dimensions returns the mutated dimension followed by the cleared ones.
func (c Change) Dimensions() []Dimension {
	out := make([]Dimension, 0, 1+len(c.Cleared))
	out = append(out, c.Dimension)
	return append(out, c.Cleared...)
}

// State is the filter record. The zero value has every dimension unset.
// State is not safe for concurrent mutation.
type State struct {
	values map[Dimension]Value
}

// NewState returns a State with every dimension unset.
func NewState() *State {
	return &State{values: make(map[Dimension]Value, len(allDimensions))}
}

// Value returns the current value of d.
func (s *State) Value(d Dimension) Value {
	if s == nil {
		return Unset()
	}
	return s.values[d]
}

// Get returns the integer value of d and whether it is set.
func (s *State) Get(d Dimension) (int, bool) {
	return s.Value(d).Get()
}

// Set assigns v to d. Assigning a new session clears every
// session-scoped dimension that was set.
func (s *State) Set(d Dimension, v Value) Change {
	mustKnow(d)
	if s.values == nil {
		s.values = make(map[Dimension]Value, len(allDimensions))
	}
	ch := Change{Dimension: d, Previous: s.values[d], Current: v}
	if ch.Previous == v {
		return ch
	}
	s.values[d] = v
	if d == DimSessionID {
		for _, dep := range sessionScoped {
			if s.values[dep].IsSet() {
				s.values[dep] = Unset()
				ch.Cleared = append(ch.Cleared, dep)
			}
		}
	}
	return ch
}

// Reset unsets d.
func (s *State) Reset(d Dimension) Change {
	return s.Set(d, Unset())
}

// Snapshot returns a read-only copy of the current values.
func (s *State) Snapshot() Snapshot {
	snap := make(Snapshot, len(allDimensions))
	for _, d := range allDimensions {
		snap[d] = s.Value(d)
	}
	return snap
}

// Snapshot is a detached copy of a State.
type Snapshot map[Dimension]Value

// Value returns the captured value of d.
func (s Snapshot) Value(d Dimension) Value { return s[d] }

func mustKnow(d Dimension) {
	if !d.Valid() {
		panic(fmt.Sprintf("filter: unknown dimension %q", d))
	}
}
