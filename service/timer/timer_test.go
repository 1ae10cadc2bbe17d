package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewSourceValidatesConfig(t *testing.T) {
	if _, err := NewSource(Config{FrequencyHz: 0}, Dependencies{Log: zerolog.Nop(), Dispatch: func() {}}); err == nil {
		t.Error("Expected error for zero frequency")
	}
	if _, err := NewSource(Config{FrequencyHz: 1000}, Dependencies{Log: zerolog.Nop()}); err == nil {
		t.Error("Expected error for missing dispatch function")
	}
}

func TestSourceDispatchesUntilCancelled(t *testing.T) {
	var ticks atomic.Uint64
	src, err := NewSource(Config{FrequencyHz: 1000}, Dependencies{
		Log:      zerolog.Nop(),
		Dispatch: func() { ticks.Add(1) },
	})
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := src.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := ticks.Load()
	if got == 0 {
		t.Fatal("Expected at least one dispatched tick")
	}
	// 1kHz over ~100ms, leave generous slack for scheduling jitter.
	if got > 200 {
		t.Errorf("Expected at most 200 ticks, got %d", got)
	}

	// No more dispatches after Run returned.
	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("Dispatch invoked after Run returned")
	}
}
