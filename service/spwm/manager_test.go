package spwm

import (
	"testing"

	"github.com/rs/zerolog"
)

// newTestManager creates a manager with the given capacity,
// failing the test on any error.
func newTestManager(t *testing.T, timerFrequencyHz uint32, capacity int, deps Dependencies) Manager {
	t.Helper()
	deps.Log = zerolog.Nop()
	mgr, err := NewManager(Config{
		TimerFrequencyHz: timerFrequencyHz,
		Capacity:         capacity,
	}, deps)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return mgr
}

// buildManagedChannel builds a channel through the manager's builder.
func buildManagedChannel(t *testing.T, mgr Manager, frequencyHz uint32, dutyCycle uint8, onOff OnOffCallback, period PeriodCallback) *Channel {
	t.Helper()
	b := mgr.CreateChannel()
	if err := b.SetFrequency(frequencyHz); err != nil {
		t.Fatalf("SetFrequency failed: %v", err)
	}
	if err := b.SetDutyCycle(dutyCycle); err != nil {
		t.Fatalf("SetDutyCycle failed: %v", err)
	}
	b.SetOnOffCallback(onOff).SetPeriodCallback(period)
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return c
}

func TestNewManagerValidatesConfig(t *testing.T) {
	if _, err := NewManager(Config{TimerFrequencyHz: 0, Capacity: 4}, Dependencies{Log: zerolog.Nop()}); err == nil {
		t.Error("Expected error for zero timer frequency")
	}
	if _, err := NewManager(Config{TimerFrequencyHz: 100000, Capacity: 0}, Dependencies{Log: zerolog.Nop()}); err == nil {
		t.Error("Expected error for zero capacity")
	}
	if _, err := NewManager(Config{TimerFrequencyHz: 100000, Capacity: -3}, Dependencies{Log: zerolog.Nop()}); err == nil {
		t.Error("Expected error for negative capacity")
	}
}

func TestManagerCreateChannelUsesTimerFrequency(t *testing.T) {
	mgr := newTestManager(t, 10000, 4, Dependencies{})
	b := mgr.CreateChannel()
	// 100 Hz is exactly the 100x limit of a 10 kHz timer, 101 Hz is beyond it.
	if err := b.SetFrequency(100); err != nil {
		t.Fatalf("SetFrequency(100) failed: %v", err)
	}
	if err := b.SetFrequency(101); !IsInvalidFrequency(err) {
		t.Errorf("Expected InvalidFrequencyError for 101 Hz on a 10 kHz timer, got %v", err)
	}
}

func TestManagerCapacity(t *testing.T) {
	const capacity = 4
	mgr := newTestManager(t, 100000, capacity, Dependencies{})
	for i := 0; i < capacity; i++ {
		c := buildManagedChannel(t, mgr, 1000, 50, noopOnOff, noopPeriod)
		id, err := mgr.RegisterChannel(c)
		if err != nil {
			t.Fatalf("Registration %d failed: %v", i, err)
		}
		if int(id) != i {
			t.Errorf("Registration %d: expected id %d, got %d", i, i, id)
		}
	}
	c := buildManagedChannel(t, mgr, 1000, 50, noopOnOff, noopPeriod)
	_, err := mgr.RegisterChannel(c)
	if err == nil {
		t.Fatal("Registration beyond capacity succeeded")
	}
	if !IsCapacityExceeded(err) {
		t.Errorf("Expected CapacityExceededError, got %v", err)
	}
}

func TestManagerRegisterChannelValidates(t *testing.T) {
	mgr := newTestManager(t, 100000, 4, Dependencies{})
	if _, err := mgr.RegisterChannel(nil); !IsInvalidChannel(err) {
		t.Errorf("Expected InvalidChannelError for nil channel, got %v", err)
	}
	c := buildManagedChannel(t, mgr, 1000, 50, noopOnOff, noopPeriod)
	if _, err := mgr.RegisterChannel(c); err != nil {
		t.Fatalf("Registration failed: %v", err)
	}
	if _, err := mgr.RegisterChannel(c); !IsInvalidChannel(err) {
		t.Errorf("Expected InvalidChannelError for double registration, got %v", err)
	}
}

func TestManagerGetChannel(t *testing.T) {
	mgr := newTestManager(t, 100000, 4, Dependencies{})
	c := buildManagedChannel(t, mgr, 1000, 50, noopOnOff, noopPeriod)
	id, err := mgr.RegisterChannel(c)
	if err != nil {
		t.Fatalf("Registration failed: %v", err)
	}
	got, err := mgr.GetChannel(id)
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}
	if got != c {
		t.Error("GetChannel returned a different channel")
	}
	for _, invalid := range []ChannelID{-1, 1, 4, 99} {
		_, err := mgr.GetChannel(invalid)
		if err == nil {
			t.Errorf("GetChannel(%d) succeeded, expected error", invalid)
			continue
		}
		if !IsInvalidChannel(err) {
			t.Errorf("GetChannel(%d): expected InvalidChannelError, got %v", invalid, err)
		}
	}
}

func TestManagerTickDispatchSlotOrder(t *testing.T) {
	mgr := newTestManager(t, 100000, 4, Dependencies{})
	var order []ChannelID
	for i := 0; i < 3; i++ {
		id := ChannelID(i)
		c := buildManagedChannel(t, mgr, 1000, 50,
			func(State) { order = append(order, id) },
			noopPeriod)
		gotID, err := mgr.RegisterChannel(c)
		if err != nil {
			t.Fatalf("Registration %d failed: %v", i, err)
		}
		if gotID != id {
			t.Fatalf("Expected id %d, got %d", id, gotID)
		}
		if err := c.Enable(); err != nil {
			t.Fatalf("Enable %d failed: %v", i, err)
		}
	}
	// All three channels transition to On on the first tick, in slot order.
	mgr.TickDispatch()
	if len(order) != 3 {
		t.Fatalf("Expected 3 callbacks, got %d", len(order))
	}
	for i, id := range order {
		if int(id) != i {
			t.Errorf("Callback %d came from channel %d, expected slot order", i, id)
		}
	}
}

func TestManagerTickDispatchSkipsDisabled(t *testing.T) {
	mgr := newTestManager(t, 100000, 4, Dependencies{})
	calls := 0
	c := buildManagedChannel(t, mgr, 1000, 50, func(State) { calls++ }, noopPeriod)
	if _, err := mgr.RegisterChannel(c); err != nil {
		t.Fatalf("Registration failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		mgr.TickDispatch()
	}
	if calls != 0 {
		t.Errorf("Expected no callbacks for a disabled channel, got %d", calls)
	}
	if got := c.tickCounter.Load(); got != 0 {
		t.Errorf("Expected counter untouched for a disabled channel, got %d", got)
	}
	if got := mgr.TicksDispatched(); got != 10 {
		t.Errorf("Expected 10 dispatched ticks, got %d", got)
	}
}

func TestManagerTimerStartStopCallbacks(t *testing.T) {
	starts := 0
	stops := 0
	mgr := newTestManager(t, 100000, 4, Dependencies{
		OnTimerStart: func() { starts++ },
		OnTimerStop:  func() { stops++ },
	})
	var channels []*Channel
	for i := 0; i < 2; i++ {
		c := buildManagedChannel(t, mgr, 1000, 50, noopOnOff, noopPeriod)
		if _, err := mgr.RegisterChannel(c); err != nil {
			t.Fatalf("Registration %d failed: %v", i, err)
		}
		channels = append(channels, c)
	}

	if err := channels[0].Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if starts != 1 {
		t.Errorf("Expected 1 timer start after first enable, got %d", starts)
	}
	if err := channels[1].Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if starts != 1 {
		t.Errorf("Expected no extra timer start, got %d", starts)
	}

	if err := channels[0].Disable(); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	if stops != 0 {
		t.Errorf("Expected no timer stop while a channel is enabled, got %d", stops)
	}
	if err := channels[1].Disable(); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	if stops != 1 {
		t.Errorf("Expected 1 timer stop after last disable, got %d", stops)
	}
}

func TestManagerChannelsSnapshot(t *testing.T) {
	mgr := newTestManager(t, 100000, 4, Dependencies{})
	c := buildManagedChannel(t, mgr, 1000, 25, noopOnOff, noopPeriod)
	id, err := mgr.RegisterChannel(c)
	if err != nil {
		t.Fatalf("Registration failed: %v", err)
	}
	if err := c.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		mgr.TickDispatch()
	}

	infos := mgr.Channels()
	if len(infos) != 1 {
		t.Fatalf("Expected 1 channel info, got %d", len(infos))
	}
	info := infos[0]
	if info.ID != id {
		t.Errorf("Expected id %d, got %d", id, info.ID)
	}
	if info.FrequencyHz != 1000 {
		t.Errorf("Expected frequency 1000, got %d", info.FrequencyHz)
	}
	if info.DutyCyclePercent != 25 {
		t.Errorf("Expected duty cycle 25, got %d", info.DutyCyclePercent)
	}
	if info.PeriodTicks != 100 {
		t.Errorf("Expected period 100, got %d", info.PeriodTicks)
	}
	if info.TickCounter != 10 {
		t.Errorf("Expected tick counter 10, got %d", info.TickCounter)
	}
	if !info.Enabled {
		t.Error("Expected channel to be enabled")
	}
	if info.State != "on" {
		t.Errorf("Expected state on, got %s", info.State)
	}
}

func TestManagerClose(t *testing.T) {
	mgr := newTestManager(t, 100000, 4, Dependencies{})
	var events []State
	c := buildManagedChannel(t, mgr, 1000, 50,
		func(s State) { events = append(events, s) },
		noopPeriod)
	if _, err := mgr.RegisterChannel(c); err != nil {
		t.Fatalf("Registration failed: %v", err)
	}
	if err := c.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		mgr.TickDispatch()
	}
	if got := c.State(); got != StateOn {
		t.Fatalf("Expected state On before close, got %s", got)
	}

	events = nil
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if c.Enabled() {
		t.Error("Expected channel disabled after close")
	}
	if len(events) != 1 || events[0] != StateOff {
		t.Errorf("Expected a single Off event on close, got %v", events)
	}
	// Closing again is a no-op.
	if err := mgr.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}
