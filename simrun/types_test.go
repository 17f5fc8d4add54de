package simrun

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceProgress_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		state PresenceState
	}{
		{"absent", `{"present": false}`, Absent},
		{"absent ignores timing", `{"present": false, "sim": {"end_time": 5}}`, Absent},
		{"present without timing", `{"present": true}`, PresentEmpty},
		{"present with partial timing", `{"present": true, "sim": {"start_time": 0, "end_time": 10, "last_time": 2}}`, PresentEmpty},
		{"null", `null`, Absent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PresenceProgress
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.state, p.State)
			_, ok := ToSimpleProgress(p)
			assert.False(t, ok)
		})
	}
}

func TestPresenceProgress_Full(t *testing.T) {
	in := `{"present": true,
		"sim": {"start_time": 0, "end_time": 100, "last_time": 42.5},
		"wall": {"start_time": "2024-05-01T10:00:00Z", "last_time": "2024-05-01T11:00:00Z"}}`

	var p PresenceProgress
	require.NoError(t, json.Unmarshal([]byte(in), &p))
	assert.Equal(t, PresentFull, p.State)
	assert.Equal(t, "2024-05-01T11:00:00Z", p.Wall.LastTime)

	sp, ok := ToSimpleProgress(p)
	require.True(t, ok)
	assert.Equal(t, SimpleProgress{Current: 42.5, Total: 100}, sp)

	out, err := json.Marshal(PresenceProgress{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"present": false}`, string(out))
	assert.Equal(t, "present_full", p.State.String())
}

func TestSimpleProgress_Fraction(t *testing.T) {
	assert.Equal(t, 0.0, SimpleProgress{Current: 5, Total: 0}.Fraction())
	assert.Equal(t, 1.0, SimpleProgress{Current: 12, Total: 10}.Fraction())
	assert.Equal(t, 0.5, SimpleProgress{Current: 5, Total: 10}.Fraction())
}

func TestMoney(t *testing.T) {
	var m Money
	require.NoError(t, json.Unmarshal([]byte(`["aud", 12.5]`), &m))
	assert.Equal(t, Money{Currency: "AUD", Total: 12.5}, m)
	assert.Equal(t, "12.50 AUD", m.String())

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `["AUD", 12.5]`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`["aud"]`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"currency": "aud"}`), &m))
}

func TestUser_Account(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"account_id": "flat"}`, "flat"},
		{`{"Sc": {"account_id": "nested", "username": "bob"}}`, "nested"},
		{`{"Id": {"id": "oid"}}`, ""},
	}
	for _, tt := range tests {
		var u User
		require.NoError(t, json.Unmarshal([]byte(tt.in), &u))
		assert.Equal(t, tt.want, u.Account(), tt.in)
	}
}

func TestCoresToInstance(t *testing.T) {
	for n, want := range map[int]InstanceType{1: Cores1, 2: Cores2, 4: Cores4, 8: Cores8, 16: Cores16, 32: Cores32} {
		got, err := CoresToInstance(n)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, n := range []int{0, 3, 64, -1} {
		_, err := CoresToInstance(n)
		assert.Error(t, err, "cores %d", n)
	}
}

func TestRunRecord_Times(t *testing.T) {
	r := RunRecord{OpenTime: "2024-05-01T10:00:00.5Z", UpdateTime: "yesterday"}
	opened, ok := r.Opened()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 500_000_000, time.UTC), opened)
	_, ok = r.Updated()
	assert.False(t, ok)
}

func TestDuration_Std(t *testing.T) {
	assert.Equal(t, 90*time.Second+5*time.Millisecond, Duration{Secs: 90, Nanos: 5_000_000}.Std())
}
