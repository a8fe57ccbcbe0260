package removaltime

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/chronicle/pkg/history"
)

var (
	start = time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
	end   = time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyEnd, false},
		{"none", StrategyNone, false},
		{"START", StrategyStart, false},
		{" end ", StrategyEnd, false},
		{"finish", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				var se *StrategyError
				if !errors.As(err, &se) {
					t.Fatalf("ParseStrategy(%q) error = %v, want StrategyError", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStrategy(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultProvider_ForRoot(t *testing.T) {
	running := &history.RootInstance{ID: "root", StartTime: start, HistoryTimeToLiveDays: history.IntPtr(5)}
	ended := running.Clone()
	ended.EndTime = &end
	noTTL := ended.Clone()
	noTTL.HistoryTimeToLiveDays = nil

	tests := []struct {
		name     string
		strategy Strategy
		root     *history.RootInstance
		want     *time.Time
	}{
		{"none ignores ttl", StrategyNone, ended, nil},
		{"start resolves while running", StrategyStart, running, ptr(start.AddDate(0, 0, 5))},
		{"start after end still uses start", StrategyStart, ended, ptr(start.AddDate(0, 0, 5))},
		{"end unknown while running", StrategyEnd, running, nil},
		{"end resolves after end", StrategyEnd, ended, ptr(end.AddDate(0, 0, 5))},
		{"no ttl start", StrategyStart, noTTL, nil},
		{"no ttl end", StrategyEnd, noTTL, nil},
		{"nil root", StrategyEnd, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDefaultProvider(tt.strategy).ForRoot(tt.root)
			if !history.TimeEqual(got, tt.want) {
				t.Errorf("ForRoot() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultProvider_ForStandaloneDecision(t *testing.T) {
	eval := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if got := NewDefaultProvider(StrategyNone).ForStandaloneDecision(history.IntPtr(3), eval); got != nil {
		t.Errorf("none strategy produced removal time %v", got)
	}
	if got := NewDefaultProvider(StrategyEnd).ForStandaloneDecision(nil, eval); got != nil {
		t.Errorf("missing ttl produced removal time %v", got)
	}
	for _, s := range []Strategy{StrategyStart, StrategyEnd} {
		got := NewDefaultProvider(s).ForStandaloneDecision(history.IntPtr(3), eval)
		if !history.TimeEqual(got, ptr(eval.AddDate(0, 0, 3))) {
			t.Errorf("%s: ForStandaloneDecision() = %v", s, got)
		}
	}
}

func TestDefaultProvider_ForBatch(t *testing.T) {
	ttl := history.IntPtr(2)

	if got := NewDefaultProvider(StrategyEnd).ForBatch(ttl, start, nil); got != nil {
		t.Errorf("running batch under end strategy = %v, want nil", got)
	}
	if got := NewDefaultProvider(StrategyEnd).ForBatch(ttl, start, &end); !history.TimeEqual(got, ptr(end.AddDate(0, 0, 2))) {
		t.Errorf("ended batch = %v", got)
	}
	if got := NewDefaultProvider(StrategyStart).ForBatch(ttl, start, nil); !history.TimeEqual(got, ptr(start.AddDate(0, 0, 2))) {
		t.Errorf("start strategy batch = %v", got)
	}
	if got := NewDefaultProvider(StrategyStart).ForBatch(nil, start, &end); got != nil {
		t.Errorf("batch without ttl = %v, want nil", got)
	}
}

func TestParseTimeToLive(t *testing.T) {
	tests := []struct {
		in      string
		want    *int
		wantErr bool
	}{
		{"", nil, false},
		{"5", history.IntPtr(5), false},
		{"P180D", history.IntPtr(180), false},
		{"p0d", history.IntPtr(0), false},
		{"PT5H", nil, true},
		{"-1", nil, true},
		{"five", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeToLive(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeToLive(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.want == nil {
			if got != nil {
				t.Errorf("ParseTimeToLive(%q) = %d, want nil", tt.in, *got)
			}
			continue
		}
		if got == nil || *got != *tt.want {
			t.Errorf("ParseTimeToLive(%q) = %v, want %d", tt.in, got, *tt.want)
		}
	}
}

func TestBatchTimeToLive_For(t *testing.T) {
	b, err := NewBatchTimeToLive("P5D", map[string]string{"set-removal-time": "1"})
	if err != nil {
		t.Fatalf("NewBatchTimeToLive() failed: %v", err)
	}

	if got := b.For("set-removal-time"); got == nil || *got != 1 {
		t.Errorf("per-type ttl = %v, want 1", got)
	}
	if got := b.For("migration"); got == nil || *got != 5 {
		t.Errorf("default ttl = %v, want 5", got)
	}

	empty, _ := NewBatchTimeToLive("", nil)
	if got := empty.For("migration"); got != nil {
		t.Errorf("unset ttl = %d, want nil", *got)
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
