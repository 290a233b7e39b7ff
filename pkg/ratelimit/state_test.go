package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestState_InPenalty(t *testing.T) {
	tests := []struct {
		name         string
		penaltyUntil time.Time
		want         bool
	}{
		{"no penalty", time.Time{}, false},
		{"active penalty", time.Now().Add(10 * time.Second), true},
		{"expired penalty", time.Now().Add(-10 * time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{PenaltyUntil: tt.penaltyUntil}
			if got := state.InPenalty(); got != tt.want {
				t.Errorf("InPenalty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestState_PenaltyRemaining(t *testing.T) {
	state := &State{PenaltyUntil: time.Now().Add(30 * time.Second)}

	remaining := state.PenaltyRemaining()
	if remaining <= 29*time.Second || remaining > 30*time.Second {
		t.Errorf("PenaltyRemaining() = %v, want ~30s", remaining)
	}
}

func TestState_PenaltyRemaining_Expired(t *testing.T) {
	state := &State{PenaltyUntil: time.Now().Add(-time.Minute)}

	if got := state.PenaltyRemaining(); got != 0 {
		t.Errorf("PenaltyRemaining() = %v, want 0", got)
	}
}

func TestState_IsStale(t *testing.T) {
	state := &State{LastUpdate: time.Now().Add(-10 * time.Minute)}

	if !state.IsStale(5 * time.Minute) {
		t.Error("IsStale(5m) = false for 10 minute old state")
	}
	if state.IsStale(time.Hour) {
		t.Error("IsStale(1h) = true for 10 minute old state")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"seconds", "17", 17 * time.Second},
		{"zero", "0", 0},
		{"absent", "", time.Second},
		{"garbage", "soonish", time.Second},
		{"negative", "-5", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.value != "" {
				headers.Set("Retry-After", tt.value)
			}
			if got := parseRetryAfter(headers); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
