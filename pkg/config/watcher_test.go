package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 callback, got %d", n)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("expected no callback after stop, got %d", n)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "cleanup:\n  batch_size: 100\n")
	if _, err := Initialize(path); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { SetConfig(nil) })

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(old, updated *Config) {
		changes <- updated
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)
	defer w.Stop()

	// Give the watch loop a moment to start.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("cleanup:\n  batch_size: 200\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-changes:
		if cfg.Cleanup.BatchSize != 200 {
			t.Errorf("expected reloaded batch size 200, got %d", cfg.Cleanup.BatchSize)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if got := GetConfig().Cleanup.BatchSize; got != 200 {
		t.Errorf("expected current config to be replaced, got batch size %d", got)
	}
}

func TestWatcher_InvalidReloadKeepsCurrent(t *testing.T) {
	path := writeConfig(t, "cleanup:\n  batch_size: 100\n")
	if _, err := Initialize(path); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { SetConfig(nil) })

	var calls atomic.Int32
	w, err := NewWatcher(path, 20*time.Millisecond, func(old, updated *Config) { calls.Add(1) })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)
	defer w.Stop()
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("cleanup:\n  batch_size: 9000\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("expected invalid configuration to be ignored, got %d changes", n)
	}
	if got := GetConfig().Cleanup.BatchSize; got != 100 {
		t.Errorf("expected current config to stay, got batch size %d", got)
	}
}

func TestReloadConfig_ReturnsPrevious(t *testing.T) {
	first := DefaultConfig()
	SetConfig(first)
	t.Cleanup(func() { SetConfig(nil) })

	path := writeConfig(t, "cleanup:\n  degree_of_parallelism: 2\n")
	old, updated, err := ReloadConfig(path)
	if err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}
	if old != first {
		t.Error("expected previous configuration to be returned")
	}
	if updated.Cleanup.DegreeOfParallelism != 2 || MustGetConfig() != updated {
		t.Error("expected reloaded configuration to become current")
	}
}

func TestMustGetConfig_PanicsWhenUnset(t *testing.T) {
	SetConfig(nil)
	defer func() {
		if recover() == nil {
			t.Error("expected panic without configuration")
		}
	}()
	MustGetConfig()
}
