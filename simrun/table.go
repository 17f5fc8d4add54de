package simrun

import "fmt"

// StatusRow is a RunningStatus rendered for display.
type StatusRow struct {
	RunID     RunID
	AccountID AccountID
	Chid      Chid
	Progress  string
	CPU       string
	Memory    string
	RunRate   string
}

const gib = 1024 * 1024 * 1024

func ToTable(runs []RunningStatus) []StatusRow {
	out := make([]StatusRow, 0, len(runs))
	for _, r := range runs {
		out = append(out, ToTableRow(r))
	}
	return out
}

// ToTableRow formats one status. Missing measurements render as "-".
func ToTableRow(r RunningStatus) StatusRow {
	row := StatusRow{
		RunID:     r.RunID,
		AccountID: r.AccountID,
		Chid:      r.Chid,
		Progress:  "-",
		CPU:       "-",
		Memory:    "-",
		RunRate:   "-",
	}
	if r.RunRate != nil {
		row.RunRate = fmt.Sprintf("%.2f s/day", *r.RunRate*60*60*24)
	}
	if v, hi, ok := pair(r.CPU, r.CPUMax); ok {
		row.CPU = fmt.Sprintf("%.0f/%.0f%%", v, hi)
	}
	if v, hi, ok := pair(r.Memory, r.MemoryMax); ok {
		row.Memory = fmt.Sprintf("%.2f/%.2f GiB", v/gib, hi/gib)
	}
	if r.Progress != nil {
		row.Progress = fmt.Sprintf("%.1f/%.1f s", r.Progress.Sim.LastTime, r.Progress.Sim.EndTime)
	}
	return row
}

func pair(v, hi *Metric) (float64, float64, bool) {
	if v == nil || hi == nil || v.Value == nil || hi.Value == nil {
		return 0, 0, false
	}
	return *v.Value, *hi.Value, true
}
