package simrun

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type (
	RunID     = string
	Chid      = string
	AccountID = string
)

// Phase selects which copy of a run's files the service serves.
type Phase string

const (
	PhaseStaging Phase = "staging"
	PhaseStorage Phase = "storage"
	PhaseRunning Phase = "running"
)

type InstanceType string

const (
	Cores1  InstanceType = "Cores1"
	Cores2  InstanceType = "Cores2"
	Cores4  InstanceType = "Cores4"
	Cores8  InstanceType = "Cores8"
	Cores16 InstanceType = "Cores16"
	Cores32 InstanceType = "Cores32"
)

// CoresToInstance maps a core count onto an instance type. Only powers of two
// up to 32 are offered by the service.
func CoresToInstance(n int) (InstanceType, error) {
	switch n {
	case 1:
		return Cores1, nil
	case 2:
		return Cores2, nil
	case 4:
		return Cores4, nil
	case 8:
		return Cores8, nil
	case 16:
		return Cores16, nil
	case 32:
		return Cores32, nil
	default:
		return "", fmt.Errorf("simrun: no instance type with %d cores", n)
	}
}

type SimID struct {
	AccountID AccountID `json:"account_id"`
	Chid      Chid      `json:"chid"`
}

type RunParams struct {
	InstanceType string `json:"instance_type"`
	FDSVersion   string `json:"fds_version"`
	CoreCount    int    `json:"core_count"`
	MemGB        int    `json:"mem_gb"`
	NProcesses   *int   `json:"n_processes,omitempty"`
	NThreads     *int   `json:"n_threads,omitempty"`
}

// RunRecord is the service's view of one submitted run. Open stays true until
// the service finalizes the run and never flips back.
type RunRecord struct {
	RunID         RunID            `json:"run_id"`
	SimID         SimID            `json:"sim_id"`
	OpenTime      string           `json:"open_time,omitempty"`
	UpdateTime    string           `json:"update_time,omitempty"`
	Username      string           `json:"username,omitempty"`
	ProjectNumber string           `json:"project_number,omitempty"`
	Open          bool             `json:"open"`
	Version       int64            `json:"version"`
	ManualUpload  bool             `json:"manual_upload"`
	Running       PresenceProgress `json:"running"`
	Stored        PresenceProgress `json:"stored"`
	NoArchive     bool             `json:"no_archive"`
	RunParams     *RunParams       `json:"run_params,omitempty"`
}

// Opened parses OpenTime. ok is false when the field is absent or not RFC 3339.
func (r RunRecord) Opened() (t time.Time, ok bool) {
	return parseTime(r.OpenTime)
}

func (r RunRecord) Updated() (t time.Time, ok bool) {
	return parseTime(r.UpdateTime)
}

func parseTime(s string) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type ProgressInfo struct {
	Running PresenceProgress `json:"running"`
	Stored  PresenceProgress `json:"stored"`
}

type RunFilter struct {
	// UpdatedSince is an inclusive lower bound on update time, epoch milliseconds.
	UpdatedSince *int64
	Chid         string
	// Limit is a page size hint.
	Limit *int
}

type SubmitParams struct {
	Chid       Chid
	FDSVersion string
	Project    string

	// InstanceType wins over Cores when both are set.
	InstanceType InstanceType
	Cores        int
}

type Snapshot struct {
	ID   string `json:"id"`
	Time string `json:"time"`
	Size int64  `json:"size"`
}

type CurrentUsage struct {
	UsedCores     float64 `json:"used_cores"`
	ReservedCores float64 `json:"reserved_cores"`
}

type Duration struct {
	Secs  int64 `json:"secs"`
	Nanos int64 `json:"nanos"`
}

func (d Duration) Std() time.Duration {
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos)
}

type RunBilling struct {
	AccountID AccountID `json:"account_id"`
	RunID     RunID     `json:"run_id"`
	Project   string    `json:"project,omitempty"`
	User      string    `json:"user,omitempty"`
	Duration  Duration  `json:"duration"`
	Cost      Money     `json:"cost"`
}

// Money is sent by the service as a [currency, amount] pair.
type Money struct {
	Currency string
	Total    float64
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("money: want [currency, amount], got %d elements", len(pair))
	}
	var cur string
	if err := json.Unmarshal(pair[0], &cur); err != nil {
		return fmt.Errorf("money currency: %w", err)
	}
	var total float64
	if err := json.Unmarshal(pair[1], &total); err != nil {
		return fmt.Errorf("money amount: %w", err)
	}
	m.Currency = strings.ToUpper(cur)
	m.Total = total
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{m.Currency, m.Total})
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Total, m.Currency)
}

// User is the /me resource. Depending on how the caller authenticated either
// the flat fields or the Sc/Id sections are populated.
type User struct {
	AccountID AccountID `json:"account_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	ID        string    `json:"id,omitempty"`

	Sc *struct {
		AccountID AccountID `json:"account_id"`
		Username  string    `json:"username"`
	} `json:"Sc,omitempty"`
	Id *struct {
		ID string `json:"id"`
	} `json:"Id,omitempty"`
}

// Account returns the account id carried by whichever section is present.
func (u User) Account() AccountID {
	if u.AccountID != "" {
		return u.AccountID
	}
	if u.Sc != nil {
		return u.Sc.AccountID
	}
	return ""
}

type Metric struct {
	Value *float64 `json:"Value,omitempty"`
}

type RunningStatus struct {
	RunID     RunID        `json:"run_id"`
	AccountID AccountID    `json:"account_id"`
	Chid      Chid         `json:"chid"`
	Progress  *RawProgress `json:"progress,omitempty"`
	CPU       *Metric      `json:"cpu,omitempty"`
	CPUMax    *Metric      `json:"cpu_max,omitempty"`
	Memory    *Metric      `json:"memory,omitempty"`
	MemoryMax *Metric      `json:"memory_max,omitempty"`
	// RunRate is simulated seconds per wall-clock second.
	RunRate *float64 `json:"run_rate,omitempty"`
}

type Point[X, Y any] struct {
	X X `json:"x"`
	Y Y `json:"y"`
}

type DataVector[X, Y any] struct {
	Values []Point[X, Y] `json:"values"`
	XUnits string        `json:"x_units"`
	XName  string        `json:"x_name"`
	YUnits string        `json:"y_units"`
	YName  string        `json:"y_name"`
}

type RunData struct {
	StartTime *float64                    `json:"start_time,omitempty"`
	EndTime   *float64                    `json:"end_time,omitempty"`
	TimeSteps DataVector[float64, string] `json:"time_steps"`
}
