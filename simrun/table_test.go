package simrun

import "testing"

func f64(v float64) *float64 { return &v }

func TestToTableRow(t *testing.T) {
	tests := []struct {
		name string
		in   RunningStatus
		want StatusRow
	}{
		{
			name: "all measurements",
			in: RunningStatus{
				RunID:     "r1",
				AccountID: "a",
				Chid:      "room",
				Progress:  &RawProgress{Sim: SimTiming{EndTime: 600, LastTime: 12.34}},
				CPU:       &Metric{Value: f64(387)},
				CPUMax:    &Metric{Value: f64(400)},
				Memory:    &Metric{Value: f64(2 * gib)},
				MemoryMax: &Metric{Value: f64(8 * gib)},
				RunRate:   f64(0.5),
			},
			want: StatusRow{
				RunID: "r1", AccountID: "a", Chid: "room",
				Progress: "12.3/600.0 s",
				CPU:      "387/400%",
				Memory:   "2.00/8.00 GiB",
				RunRate:  "43200.00 s/day",
			},
		},
		{
			name: "missing measurements",
			in: RunningStatus{
				RunID:  "r2",
				CPU:    &Metric{Value: f64(10)},
				Memory: &Metric{},
			},
			want: StatusRow{RunID: "r2", Progress: "-", CPU: "-", Memory: "-", RunRate: "-"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToTableRow(tt.in); got != tt.want {
				t.Errorf("ToTableRow() = %+v, want %+v", got, tt.want)
			}
		})
	}
	if got := ToTable(nil); len(got) != 0 {
		t.Errorf("ToTable(nil) = %v", got)
	}
}
