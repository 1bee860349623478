package dataset

import (
	"fmt"
	"strings"
)

// Field is a named integer attribute a predicate can constrain.
type Field string

const (
	FieldSessionID          Field = "sessionId"
	FieldLevelID            Field = "levelId"
	FieldElectronCount      Field = "electronCount"
	FieldInitialLevelID     Field = "initialLevelId"
	FieldFinalLevelID       Field = "finalLevelId"
	FieldElectronCountDelta Field = "electronCountDelta"
	FieldFinalElectronCount Field = "finalElectronCount"
	FieldProcessType        Field = "processType"
)

// kindFields lists the fields each record kind can be filtered on.
var kindFields = map[RecordKind][]Field{
	KindSession:     {FieldSessionID},
	KindLevel:       {FieldSessionID, FieldLevelID, FieldElectronCount},
	KindTransition:  {FieldSessionID, FieldInitialLevelID, FieldFinalLevelID, FieldElectronCount, FieldElectronCountDelta},
	KindChargeState: {FieldSessionID, FieldElectronCount},
	KindProcess:     {FieldSessionID, FieldProcessType, FieldInitialLevelID, FieldFinalLevelID, FieldElectronCount, FieldFinalElectronCount},
}

// Op is a constraint operator.
type Op int

const (
	OpEq Op = iota
	OpBetween
)

// Constraint restricts one field. Eq uses Lo only; Between is inclusive.
type Constraint struct {
	Field Field
	Op    Op
	Lo    int
	Hi    int
}

func (c Constraint) holds(v int) bool {
	switch c.Op {
	case OpEq:
		return v == c.Lo
	case OpBetween:
		return v >= c.Lo && v <= c.Hi
	}
	return false
}

func (c Constraint) String() string {
	if c.Op == OpBetween {
		return fmt.Sprintf("%s between [%d,%d]", c.Field, c.Lo, c.Hi)
	}
	return fmt.Sprintf("%s = %d", c.Field, c.Lo)
}

// Predicate is a conjunction of constraints. The zero value matches every
// record. Builder methods return a new Predicate and never modify the
// receiver.
type Predicate struct {
	constraints []Constraint
}

// All returns the predicate that matches everything.
func All() Predicate { return Predicate{} }

func (p Predicate) with(c Constraint) Predicate {
	cs := make([]Constraint, len(p.constraints), len(p.constraints)+1)
	copy(cs, p.constraints)
	return Predicate{constraints: append(cs, c)}
}

// Eq adds field = v.
func (p Predicate) Eq(f Field, v int) Predicate {
	return p.with(Constraint{Field: f, Op: OpEq, Lo: v, Hi: v})
}

// Between adds lo <= field <= hi.
func (p Predicate) Between(f Field, lo, hi int) Predicate {
	return p.with(Constraint{Field: f, Op: OpBetween, Lo: lo, Hi: hi})
}

// Constraints returns a copy of the constraints in insertion order.
func (p Predicate) Constraints() []Constraint {
	out := make([]Constraint, len(p.constraints))
	copy(out, p.constraints)
	return out
}

// IsAll reports whether the predicate has no constraints.
func (p Predicate) IsAll() bool { return len(p.constraints) == 0 }

// Validate checks that every constraint names a field of kind and is well
// formed.
func (p Predicate) Validate(kind RecordKind) error {
	fields, ok := kindFields[kind]
	if !ok {
		return fmt.Errorf("%w: unknown record kind %q", ErrMalformedPredicate, kind)
	}
	for _, c := range p.constraints {
		if !containsField(fields, c.Field) {
			return fmt.Errorf("%w: field %q not available on %s records", ErrMalformedPredicate, c.Field, kind)
		}
		switch c.Op {
		case OpEq:
		case OpBetween:
			if c.Lo > c.Hi {
				return fmt.Errorf("%w: empty range %s", ErrMalformedPredicate, c)
			}
		default:
			return fmt.Errorf("%w: unknown operator %d", ErrMalformedPredicate, c.Op)
		}
	}
	return nil
}

// Match reports whether r satisfies every constraint.
func (p Predicate) Match(r Record) bool {
	for _, c := range p.constraints {
		v, ok := r.Field(c.Field)
		if !ok || !c.holds(v) {
			return false
		}
	}
	return true
}

func (p Predicate) String() string {
	if p.IsAll() {
		return "true"
	}
	parts := make([]string, len(p.constraints))
	for i, c := range p.constraints {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// mustValidate panics on a malformed predicate. Predicates are built by the
// views, so a bad one is a bug in the caller rather than a runtime condition.
func mustValidate(kind RecordKind, p Predicate) {
	if err := p.Validate(kind); err != nil {
		panic(err)
	}
}

func containsField(fields []Field, f Field) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
