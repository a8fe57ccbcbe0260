package cleanup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/store"
)

func TestShards(t *testing.T) {
	tests := []struct {
		degree int
		want   []string
	}{
		{1, []string{"0-59"}},
		{2, []string{"0-29", "30-59"}},
		{3, []string{"0-19", "20-39", "40-59"}},
		{8, []string{"0-6", "7-13", "14-20", "21-27", "28-34", "35-41", "42-48", "49-59"}},
	}

	for _, tt := range tests {
		shards, err := Shards(tt.degree)
		if err != nil {
			t.Fatalf("Shards(%d) failed: %v", tt.degree, err)
		}
		if len(shards) != len(tt.want) {
			t.Fatalf("Shards(%d): expected %d shards, got %d", tt.degree, len(tt.want), len(shards))
		}
		for i, s := range shards {
			if s.String() != tt.want[i] {
				t.Errorf("Shards(%d)[%d]: expected %s, got %s", tt.degree, i, tt.want[i], s)
			}
		}
	}

	for _, degree := range []int{0, 9, -1} {
		if _, err := Shards(degree); err == nil {
			t.Errorf("Expected error for degree %d", degree)
		}
	}
}

func TestShards_CoverHourOnce(t *testing.T) {
	for degree := 1; degree <= MaxDegreeOfParallelism; degree++ {
		shards, _ := Shards(degree)
		var covered [60]int
		for _, s := range shards {
			for m := s.MinuteFrom; m <= s.MinuteTo; m++ {
				covered[m]++
			}
		}
		for m, n := range covered {
			if n != 1 {
				t.Errorf("Degree %d: minute %d covered %d times", degree, m, n)
			}
		}
	}
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(10)

	want := []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second, 80 * time.Second}
	for i, w := range want {
		if got := b.Next(3); got != w {
			t.Errorf("Empty run %d: expected %v, got %v", i+1, w, got)
		}
	}

	if got := b.Next(10); got != 0 {
		t.Errorf("Expected productive run to reset delay, got %v", got)
	}
	if got := b.Next(0); got != 10*time.Second {
		t.Errorf("Expected delay to restart at base, got %v", got)
	}

	for i := 0; i < 40; i++ {
		b.Next(0)
	}
	if got := b.Next(0); got != time.Hour {
		t.Errorf("Expected delay capped at 1h, got %v", got)
	}

	b.Reset()
	if got := b.Next(0); got != 10*time.Second {
		t.Errorf("Expected base delay after reset, got %v", got)
	}
}

func TestBackoff_ZeroThreshold(t *testing.T) {
	b := NewBackoff(0)
	if got := b.Next(0); got != DefaultBackoffBase {
		t.Errorf("Expected nothing removed to back off, got %v", got)
	}
	if got := b.Next(1); got != 0 {
		t.Errorf("Expected any removal to count as productive, got %v", got)
	}
}

func clock(h, m int) time.Time {
	return time.Date(2024, 3, 10, h, m, 0, 0, time.UTC)
}

func TestBatchWindow(t *testing.T) {
	t.Run("unset is always open", func(t *testing.T) {
		w, err := ParseBatchWindow("", "")
		if err != nil {
			t.Fatalf("ParseBatchWindow failed: %v", err)
		}
		if w.IsSet() {
			t.Error("Expected unset window")
		}
		if !w.Contains(clock(3, 0)) || w.UntilOpen(clock(3, 0)) != 0 {
			t.Error("Expected unset window to be open")
		}
		if w.String() != "always" {
			t.Errorf("Expected 'always', got %s", w.String())
		}
	})

	t.Run("same day", func(t *testing.T) {
		w, err := ParseBatchWindow("01:00", "05:30")
		if err != nil {
			t.Fatalf("ParseBatchWindow failed: %v", err)
		}
		cases := map[time.Time]bool{
			clock(0, 59): false,
			clock(1, 0):  true,
			clock(5, 29): true,
			clock(5, 30): false,
			clock(23, 0): false,
		}
		for at, want := range cases {
			if got := w.Contains(at); got != want {
				t.Errorf("Contains(%s): expected %v, got %v", at.Format("15:04"), want, got)
			}
		}
		if got := w.UntilOpen(clock(0, 30)); got != 30*time.Minute {
			t.Errorf("Expected 30m until open, got %v", got)
		}
		if got := w.UntilOpen(clock(6, 0)); got != 19*time.Hour {
			t.Errorf("Expected 19h until next day's window, got %v", got)
		}
	})

	t.Run("wraps midnight", func(t *testing.T) {
		w, err := ParseBatchWindow("22:00", "02:00")
		if err != nil {
			t.Fatalf("ParseBatchWindow failed: %v", err)
		}
		for _, at := range []time.Time{clock(22, 0), clock(23, 59), clock(0, 0), clock(1, 59)} {
			if !w.Contains(at) {
				t.Errorf("Expected %s inside window", at.Format("15:04"))
			}
		}
		for _, at := range []time.Time{clock(2, 0), clock(12, 0), clock(21, 59)} {
			if w.Contains(at) {
				t.Errorf("Expected %s outside window", at.Format("15:04"))
			}
		}
		if got := w.UntilOpen(clock(21, 0)); got != time.Hour {
			t.Errorf("Expected 1h until open, got %v", got)
		}
		if w.String() != "22:00-02:00" {
			t.Errorf("Expected '22:00-02:00', got %s", w.String())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, in := range [][2]string{{"01:00", ""}, {"", "02:00"}, {"25:00", "02:00"}, {"01:00", "noon"}} {
			if _, err := ParseBatchWindow(in[0], in[1]); err == nil {
				t.Errorf("Expected error for %q-%q", in[0], in[1])
			}
		}
	})
}

func TestWorker_Drain(t *testing.T) {
	st := store.NewMemoryStore()
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		insertRow(t, st, history.KindIdentityLinkLog, id, removalAt(2, i))
	}

	w := NewWorker(newSweeper(st, Options{}), Shard{MinuteFrom: 0, MinuteTo: 59}, 2, BatchWindow{}, NewBackoff(1))
	n, err := w.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Expected 5 removed, got %d", n)
	}
}

func TestWorker_DrainOutsideWindow(t *testing.T) {
	st := store.NewMemoryStore()
	insertRow(t, st, history.KindIdentityLinkLog, "a", removalAt(2, 0))

	window, _ := ParseBatchWindow("01:00", "02:00")
	w := NewWorker(newSweeper(st, Options{}), Shard{MinuteFrom: 0, MinuteTo: 59}, 10, window, NewBackoff(1))
	w.clock = func() time.Time { return clock(12, 0) }

	n, err := w.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected nothing removed outside window, got %d", n)
	}
	if !exists(t, st, history.KindIdentityLinkLog, "a") {
		t.Error("Expected row to survive")
	}
}

func TestWorker_StepBacksOffWhenIdle(t *testing.T) {
	st := store.NewMemoryStore()
	w := NewWorker(newSweeper(st, Options{}), Shard{MinuteFrom: 0, MinuteTo: 59}, 2, BatchWindow{}, NewBackoff(1))
	ctx := context.Background()

	if got := w.step(ctx); got != 10*time.Second {
		t.Errorf("Expected 10s after empty sweep, got %v", got)
	}
	if got := w.step(ctx); got != 20*time.Second {
		t.Errorf("Expected 20s after second empty sweep, got %v", got)
	}

	for i, id := range []string{"a", "b", "c"} {
		insertRow(t, st, history.KindComment, id, removalAt(1, i))
	}
	if got := w.step(ctx); got != 0 {
		t.Errorf("Expected immediate retry while the batch is full, got %v", got)
	}
	if got := w.step(ctx); got != 0 {
		t.Errorf("Expected immediate retry after productive sweep, got %v", got)
	}
	if got := w.step(ctx); got != 10*time.Second {
		t.Errorf("Expected backoff to restart at base, got %v", got)
	}
}

func TestWorker_StepWaitsForWindow(t *testing.T) {
	window, _ := ParseBatchWindow("13:00", "14:00")
	w := NewWorker(newSweeper(store.NewMemoryStore(), Options{}), Shard{MinuteFrom: 0, MinuteTo: 59}, 2, window, NewBackoff(1))
	w.clock = func() time.Time { return clock(12, 15) }

	if got := w.step(context.Background()); got != 45*time.Minute {
		t.Errorf("Expected 45m until window opens, got %v", got)
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	sw := newSweeper(store.NewMemoryStore(), Options{})

	tests := []struct {
		name string
		cfg  SchedulerConfig
	}{
		{"batch size zero", SchedulerConfig{DegreeOfParallelism: 1, BatchSize: 0}},
		{"batch size too large", SchedulerConfig{DegreeOfParallelism: 1, BatchSize: 501}},
		{"degree too large", SchedulerConfig{DegreeOfParallelism: 9, BatchSize: 100}},
		{"bad cron", SchedulerConfig{Schedule: "every minute", DegreeOfParallelism: 1, BatchSize: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewScheduler(sw, tt.cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestScheduler_Continuous(t *testing.T) {
	st := store.NewMemoryStore()
	insertRow(t, st, history.KindTaskInstance, "task-1", removalAt(1, 10))
	insertRow(t, st, history.KindTaskInstance, "task-2", removalAt(1, 50))

	s, err := NewScheduler(newSweeper(st, Options{}), SchedulerConfig{DegreeOfParallelism: 2, BatchSize: 10, BatchSizeThreshold: 10})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	if len(s.Shards()) != 2 {
		t.Fatalf("Expected 2 shards, got %d", len(s.Shards()))
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Error("Expected scheduler to be running")
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error starting twice")
	}
	if s.NextRun() != nil {
		t.Error("Expected no next run in continuous mode")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !exists(t, st, history.KindTaskInstance, "task-1") && !exists(t, st, history.KindTaskInstance, "task-2") {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if exists(t, st, history.KindTaskInstance, "task-1") || exists(t, st, history.KindTaskInstance, "task-2") {
		t.Error("Expected both shards to remove their candidates")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("Expected scheduler to be stopped")
	}
	s.Stop()
}

func TestScheduler_Cron(t *testing.T) {
	s, err := NewScheduler(newSweeper(store.NewMemoryStore(), Options{}), SchedulerConfig{
		Schedule:            "0 3 * * *",
		DegreeOfParallelism: 4,
		BatchSize:           100,
	})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	next := s.NextRun()
	if next == nil {
		t.Fatal("Expected a next run")
	}
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("Expected next run at 03:00, got %s", next.Format("15:04"))
	}

	// The scheduler stops with its context.
	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("Expected scheduler to stop when its context is canceled")
	}
}

func TestScheduler_SweepAll(t *testing.T) {
	st := store.NewMemoryStore()
	for i := 0; i < 60; i += 5 {
		insertRow(t, st, history.KindAttachment, fmt.Sprintf("att-%02d", i), removalAt(1, i))
	}

	s, err := NewScheduler(newSweeper(st, Options{}), SchedulerConfig{Schedule: "@hourly", DegreeOfParallelism: 8, BatchSize: 1})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	s.sweepAll(context.Background())

	var left int
	inTx(t, st, func(tx store.Tx) error {
		rows, err := tx.ListByScope(context.Background(), history.KindAttachment, store.Scope{By: store.ByRootProcessInstance, ID: "root-1"})
		left = len(rows)
		return err
	})
	if left != 0 {
		t.Errorf("Expected every shard drained, %d rows left", left)
	}
}

func TestScheduler_Restart(t *testing.T) {
	s, err := NewScheduler(newSweeper(store.NewMemoryStore(), Options{}), SchedulerConfig{
		Schedule:            "0 3 * * *",
		DegreeOfParallelism: 2,
		BatchSize:           10,
	})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	for i := 0; i < 50; i++ {
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
		s.Stop()
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Restart %d failed: %v", i, err)
		}
		// Let the first run's context watcher observe its cancellation.
		time.Sleep(2 * time.Millisecond)
		if !s.IsRunning() {
			t.Fatalf("Expected restarted scheduler to keep running (iteration %d)", i)
		}
		s.Stop()
	}
}
