package dataset

import (
	"fmt"
	"math"
)

// RecordKind names one of the record families a Source can answer for.
type RecordKind string

const (
	KindSession     RecordKind = "session"
	KindLevel       RecordKind = "level"
	KindTransition  RecordKind = "transition"
	KindChargeState RecordKind = "charge-state"
	KindProcess     RecordKind = "process"
)

// Record is a read-only row returned by a Source. Field exposes the integer
// attributes predicates can constrain; descriptive attributes are not
// reachable through it.
type Record interface {
	Kind() RecordKind
	Field(f Field) (int, bool)
}

// Session identifies one cFAC calculation run.
type Session struct {
	ID           int     `json:"sid"`
	Symbol       string  `json:"symbol,omitempty"`
	AtomicNumber int     `json:"anum,omitempty"`
	Mass         float64 `json:"mass,omitempty"`
	// NeleMin and NeleMax bound the electron counts of the session's levels.
	NeleMin int `json:"nele_min"`
	NeleMax int `json:"nele_max"`
}

func (Session) Kind() RecordKind { return KindSession }

func (s Session) Field(f Field) (int, bool) {
	if f == FieldSessionID {
		return s.ID, true
	}
	return 0, false
}

// Level is an energy level scoped to a session.
type Level struct {
	ID            int     `json:"id"`
	SessionID     int     `json:"sid"`
	ElectronCount int     `json:"nele"`
	Name          string  `json:"name,omitempty"`
	Energy        float64 `json:"e"`
	StatWeight    int     `json:"g,omitempty"`
	Parity        int     `json:"p,omitempty"`
}

func (Level) Kind() RecordKind { return KindLevel }

func (l Level) Field(f Field) (int, bool) {
	switch f {
	case FieldSessionID:
		return l.SessionID, true
	case FieldLevelID:
		return l.ID, true
	case FieldElectronCount:
		return l.ElectronCount, true
	}
	return 0, false
}

// Transition is a radiative transition between two levels of a session.
// ElectronCount is the initial level's electron count; ElectronCountDelta
// and DeltaE come from the dataset as stored.
type Transition struct {
	SessionID          int     `json:"sid"`
	InitialLevelID     int     `json:"ini_id"`
	FinalLevelID       int     `json:"fin_id"`
	ElectronCount      int     `json:"nele"`
	ElectronCountDelta int     `json:"dnele"`
	Multipole          int     `json:"mpole"`
	RME                float64 `json:"rme"`
	DeltaE             float64 `json:"de"`
}

func (Transition) Kind() RecordKind { return KindTransition }

func (t Transition) Field(f Field) (int, bool) {
	switch f {
	case FieldSessionID:
		return t.SessionID, true
	case FieldInitialLevelID:
		return t.InitialLevelID, true
	case FieldFinalLevelID:
		return t.FinalLevelID, true
	case FieldElectronCount:
		return t.ElectronCount, true
	case FieldElectronCountDelta:
		return t.ElectronCountDelta, true
	}
	return 0, false
}

// fineStructure is the CODATA 2018 fine-structure constant.
const fineStructure = 7.2973525693e-3

// GF returns the weighted oscillator strength of the transition computed
// from its reduced matrix element and transition energy (atomic units).
func (t Transition) GF() float64 {
	de := math.Abs(t.DeltaE)
	m := t.Multipole
	if m < 0 {
		m = -m
	}
	m2 := 2 * m
	return t.RME * t.RME * de * math.Pow(fineStructure*de, float64(m2-2)) / float64(m2+1)
}

// ChargeState summarizes the levels of one electron count within a session.
type ChargeState struct {
	SessionID     int     `json:"sid"`
	ElectronCount int     `json:"nele"`
	GroundEnergy  float64 `json:"e_gs"`
	Levels        int     `json:"nlevels"`
}

func (ChargeState) Kind() RecordKind { return KindChargeState }

func (c ChargeState) Field(f Field) (int, bool) {
	switch f {
	case FieldSessionID:
		return c.SessionID, true
	case FieldElectronCount:
		return c.ElectronCount, true
	}
	return 0, false
}

// ProcessType classifies a collisional or autoionization process.
type ProcessType int

// The collisional types follow the ctransitions type column.
const (
	ProcessExcitation     ProcessType = 1
	ProcessIonization     ProcessType = 2
	ProcessRecombination  ProcessType = 3
	ProcessAutoionization ProcessType = 4
)

func (t ProcessType) String() string {
	switch t {
	case ProcessExcitation:
		return "CE"
	case ProcessIonization:
		return "CI"
	case ProcessRecombination:
		return "RR"
	case ProcessAutoionization:
		return "AI"
	}
	return fmt.Sprintf("ProcessType(%d)", int(t))
}

// Process is a non-radiative process between two levels of a session:
// an autoionization or a collisional transition. ElectronCount and
// FinalElectronCount come from the joined levels.
type Process struct {
	SessionID          int         `json:"sid"`
	Type               ProcessType `json:"type"`
	InitialLevelID     int         `json:"ini_id"`
	FinalLevelID       int         `json:"fin_id"`
	ElectronCount      int         `json:"ini_nele"`
	FinalElectronCount int         `json:"fin_nele"`
}

func (Process) Kind() RecordKind { return KindProcess }

func (p Process) Field(f Field) (int, bool) {
	switch f {
	case FieldSessionID:
		return p.SessionID, true
	case FieldProcessType:
		return int(p.Type), true
	case FieldInitialLevelID:
		return p.InitialLevelID, true
	case FieldFinalLevelID:
		return p.FinalLevelID, true
	case FieldElectronCount:
		return p.ElectronCount, true
	case FieldFinalElectronCount:
		return p.FinalElectronCount, true
	}
	return 0, false
}
