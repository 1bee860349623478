package dataset

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// NeleRange is an inclusive electron-count window.
type NeleRange struct {
	Min int `json:"nele_min"`
	Max int `json:"nele_max"`
}

// DefaultNeleRange covers every ion stage a cFAC session can hold.
var DefaultNeleRange = NeleRange{Min: 0, Max: 100}

// Validate rejects negative bounds and inverted windows.
func (r NeleRange) Validate() error {
	if r.Min < 0 || r.Max < r.Min {
		return fmt.Errorf("invalid electron count range %d..%d", r.Min, r.Max)
	}
	return nil
}

// Stats holds the record counts of one session within an electron-count
// range. The process counts are zero for datasets without
// autoionization or collisional tables.
type Stats struct {
	SessionID      int `json:"sid"`
	NeleMin        int `json:"nele_min"`
	NeleMax        int `json:"nele_max"`
	Levels         int `json:"levels"`
	Transitions    int `json:"transitions"`
	ChargeStates   int `json:"chargeStates"`
	Autoionization int `json:"ai"`
	Excitation     int `json:"ce"`
	Ionization     int `json:"ci"`
	Recombination  int `json:"rr"`
}

// CollectStats counts the records of a session whose electron count lies
// in r. A collisional process counts when its initial stage is at most
// r.Max and its final stage at least r.Min. The counts run in parallel;
// the first failure cancels the others.
func CollectStats(ctx context.Context, src Source, sessionID int, r NeleRange) (Stats, error) {
	if err := r.Validate(); err != nil {
		return Stats{}, err
	}
	base := All().Eq(FieldSessionID, sessionID)
	inRange := base.Between(FieldElectronCount, r.Min, r.Max)
	collisional := func(t ProcessType) Predicate {
		return base.Eq(FieldProcessType, int(t)).
			Between(FieldElectronCount, 0, r.Max).
			Between(FieldFinalElectronCount, r.Min, math.MaxInt32)
	}

	st := Stats{SessionID: sessionID, NeleMin: r.Min, NeleMax: r.Max}
	counts := []struct {
		kind RecordKind
		pred Predicate
		dst  *int
	}{
		{KindLevel, inRange, &st.Levels},
		{KindTransition, inRange, &st.Transitions},
		{KindChargeState, inRange, &st.ChargeStates},
		{KindProcess, inRange.Eq(FieldProcessType, int(ProcessAutoionization)), &st.Autoionization},
		{KindProcess, collisional(ProcessExcitation), &st.Excitation},
		{KindProcess, collisional(ProcessIonization), &st.Ionization},
		{KindProcess, collisional(ProcessRecombination), &st.Recombination},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			n, err := Count(gctx, src, c.kind, c.pred)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return st, nil
}
