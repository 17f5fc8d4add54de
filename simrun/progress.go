package simrun

import (
	"encoding/json"
	"fmt"
)

// PresenceState is the tag of a PresenceProgress.
type PresenceState int

const (
	// Absent means nothing has been recorded for the run yet.
	Absent PresenceState = iota
	// PresentEmpty means an entry exists but carries no timing data.
	PresentEmpty
	// PresentFull carries simulation and wall-clock timing.
	PresentFull
)

func (s PresenceState) String() string {
	switch s {
	case Absent:
		return "absent"
	case PresentEmpty:
		return "present_empty"
	case PresentFull:
		return "present_full"
	default:
		return fmt.Sprintf("PresenceState(%d)", int(s))
	}
}

type SimTiming struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	LastTime  float64 `json:"last_time"`
}

type WallTiming struct {
	StartTime string `json:"start_time"`
	LastTime  string `json:"last_time"`
}

type RawProgress struct {
	Sim  SimTiming  `json:"sim"`
	Wall WallTiming `json:"wall"`
}

// PresenceProgress describes how far execution or archival of a run has got.
// Sim and Wall are meaningful only when State is PresentFull.
type PresenceProgress struct {
	State PresenceState
	Sim   SimTiming
	Wall  WallTiming
}

type wirePresence struct {
	Present bool        `json:"present"`
	Sim     *SimTiming  `json:"sim,omitempty"`
	Wall    *WallTiming `json:"wall,omitempty"`
}

func (p *PresenceProgress) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = PresenceProgress{}
		return nil
	}
	var w wirePresence
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("presence progress: %w", err)
	}
	switch {
	case !w.Present:
		*p = PresenceProgress{State: Absent}
	case w.Sim != nil && w.Wall != nil:
		*p = PresenceProgress{State: PresentFull, Sim: *w.Sim, Wall: *w.Wall}
	default:
		*p = PresenceProgress{State: PresentEmpty}
	}
	return nil
}

func (p PresenceProgress) MarshalJSON() ([]byte, error) {
	w := wirePresence{Present: p.State != Absent}
	if p.State == PresentFull {
		sim, wall := p.Sim, p.Wall
		w.Sim, w.Wall = &sim, &wall
	}
	return json.Marshal(w)
}

// SimpleProgress is simulated time reached against simulated end time.
type SimpleProgress struct {
	Current float64 `json:"current"`
	Total   float64 `json:"total"`
}

// Fraction is Current/Total clamped to [0,1]; zero when Total is not positive.
func (s SimpleProgress) Fraction() float64 {
	if s.Total <= 0 {
		return 0
	}
	f := s.Current / s.Total
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// ToSimpleProgress reports progress only for PresentFull. The other states mean
// "no progress available" and are not errors.
func ToSimpleProgress(p PresenceProgress) (SimpleProgress, bool) {
	if p.State != PresentFull {
		return SimpleProgress{}, false
	}
	return SimpleProgress{Current: p.Sim.LastTime, Total: p.Sim.EndTime}, true
}
