// Copyright 2024 Pulsenet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package spwm

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// MaxDutyCycle is the maximum allowed duty cycle percentage.
	MaxDutyCycle = 100

	// minFrequencyRatio is the minimum ratio between the timer frequency
	// and a channel frequency. It guarantees at least 1% duty resolution.
	minFrequencyRatio = 100
)

// Channel is a single software PWM channel.
//
// A channel is created through a ChannelBuilder, handed to a Manager with
// RegisterChannel and advanced by TickDispatch. Every field that is shared
// between the tick dispatch context and the foreground context is held in
// an atomic, so a foreground update can never be observed half-applied by
// a tick that fires mid-update.
type Channel struct {
	timerFrequencyHz uint32

	frequencyHz      atomic.Uint32
	dutyCyclePercent atomic.Uint32
	periodTicks      atomic.Uint32
	onThresholdTicks atomic.Uint32
	tickCounter      atomic.Uint32
	enabled          atomic.Bool
	state            atomic.Bool // true = On

	// Callbacks are fixed once the channel is built.
	onOffCallback  OnOffCallback
	periodCallback PeriodCallback

	// Set on registration, nil before that.
	mgr *manager
	id  ChannelID

	transitionsTotal prometheus.Counter
	periodsTotal     prometheus.Counter
}

// validateFrequency checks a desired channel frequency against the timer
// frequency driving the dispatch. Compared by division, so a large
// frequency cannot wrap uint32 and slip through.
func validateFrequency(frequencyHz, timerFrequencyHz uint32) error {
	if frequencyHz == 0 || frequencyHz > timerFrequencyHz/minFrequencyRatio {
		return maskAny(InvalidFrequencyError)
	}
	return nil
}

// Enable starts advancing the channel on tick dispatch.
// Returns AlreadyEnabledError if the channel is already enabled.
func (c *Channel) Enable() error {
	if !c.enabled.CompareAndSwap(false, true) {
		return maskAny(AlreadyEnabledError)
	}
	// A duty-100 channel is never toggled by advanceTick, so the output
	// must be asserted here.
	if on := c.onThresholdTicks.Load(); on != 0 && on == c.periodTicks.Load() {
		c.state.Store(true)
		c.onOffCallback(StateOn)
		c.countTransition()
	}
	if c.mgr != nil {
		c.mgr.channelEnabled(c.id)
	}
	return nil
}

// Disable stops the channel and forces its logical state to Off,
// invoking the on/off callback with Off exactly once if the output was On.
// The tick counter is reset so a re-enable restarts the period at tick 0.
// Returns AlreadyDisabledError if the channel is already disabled.
func (c *Channel) Disable() error {
	if !c.enabled.CompareAndSwap(true, false) {
		return maskAny(AlreadyDisabledError)
	}
	c.tickCounter.Store(0)
	if c.state.CompareAndSwap(true, false) {
		c.onOffCallback(StateOff)
		c.countTransition()
	}
	if c.mgr != nil {
		c.mgr.channelDisabled(c.id)
	}
	return nil
}

// SetFrequency changes the output frequency of the channel.
// The period is recomputed immediately and the tick counter is wrapped
// into the new period, so an in-progress tick comparison is never
// misplaced. Returns InvalidFrequencyError if the frequency is zero or
// the timer frequency is less than 100x the requested frequency.
func (c *Channel) SetFrequency(frequencyHz uint32) error {
	if err := validateFrequency(frequencyHz, c.timerFrequencyHz); err != nil {
		return maskAny(err)
	}
	periodTicks := c.timerFrequencyHz / frequencyHz
	c.frequencyHz.Store(frequencyHz)
	c.periodTicks.Store(periodTicks)
	c.applyDutyCycle(periodTicks, c.dutyCyclePercent.Load())
	c.tickCounter.Store(c.tickCounter.Load() % periodTicks)
	return nil
}

// SetDutyCycle changes the duty cycle of the channel.
// Returns InvalidDutyCycleError if the percentage exceeds 100.
func (c *Channel) SetDutyCycle(dutyCyclePercent uint8) error {
	if dutyCyclePercent > MaxDutyCycle {
		return maskAny(InvalidDutyCycleError)
	}
	c.dutyCyclePercent.Store(uint32(dutyCyclePercent))
	c.applyDutyCycle(c.periodTicks.Load(), uint32(dutyCyclePercent))
	return nil
}

// applyDutyCycle stores the on-threshold derived from the given period and
// percentage. When the update moves an enabled channel onto the 0% or 100%
// boundary, the output is forced to the matching constant state, since
// advanceTick never toggles boundary channels.
func (c *Channel) applyDutyCycle(periodTicks, dutyCyclePercent uint32) {
	onThresholdTicks := uint32(uint64(periodTicks) * uint64(dutyCyclePercent) / 100)
	c.onThresholdTicks.Store(onThresholdTicks)
	if !c.enabled.Load() {
		return
	}
	switch {
	case onThresholdTicks == 0:
		if c.state.CompareAndSwap(true, false) {
			c.onOffCallback(StateOff)
			c.countTransition()
		}
	case onThresholdTicks == periodTicks:
		if c.state.CompareAndSwap(false, true) {
			c.onOffCallback(StateOn)
			c.countTransition()
		}
	}
}

// State returns the current logical output state.
func (c *Channel) State() State {
	if c.state.Load() {
		return StateOn
	}
	return StateOff
}

// Enabled returns true when the channel is advanced by tick dispatch.
func (c *Channel) Enabled() bool {
	return c.enabled.Load()
}

// FrequencyHz returns the configured output frequency.
func (c *Channel) FrequencyHz() uint32 {
	return c.frequencyHz.Load()
}

// DutyCycle returns the configured duty cycle percentage.
func (c *Channel) DutyCycle() uint8 {
	return uint8(c.dutyCyclePercent.Load())
}

// PeriodTicks returns the number of ticks in one period.
func (c *Channel) PeriodTicks() uint32 {
	return c.periodTicks.Load()
}

// advanceTick advances the channel by one hardware tick.
// Called by the manager from the tick dispatch context for every enabled
// channel, once per dispatched tick.
func (c *Channel) advanceTick() {
	periodTicks := c.periodTicks.Load()
	onThresholdTicks := c.onThresholdTicks.Load()
	counter := c.tickCounter.Load()

	// A threshold of 0 behaves as duty 0 (never On), a threshold equal to
	// the period as duty 100 (always On). The counter still advances for
	// period callback timing, but the state never changes.
	if onThresholdTicks != 0 && onThresholdTicks != periodTicks {
		if counter == onThresholdTicks && c.state.CompareAndSwap(true, false) {
			c.onOffCallback(StateOff)
			c.countTransition()
		}
		if counter == 0 && c.state.CompareAndSwap(false, true) {
			c.onOffCallback(StateOn)
			c.countTransition()
		}
	}

	counter++
	if counter >= periodTicks {
		c.tickCounter.Store(0)
		c.periodCallback()
		if c.periodsTotal != nil {
			c.periodsTotal.Inc()
		}
	} else {
		c.tickCounter.Store(counter)
	}
}

func (c *Channel) countTransition() {
	if c.transitionsTotal != nil {
		c.transitionsTotal.Inc()
	}
}

// info returns a snapshot of the channel for the given slot.
func (c *Channel) info(id ChannelID) ChannelInfo {
	return ChannelInfo{
		ID:               id,
		FrequencyHz:      c.frequencyHz.Load(),
		DutyCyclePercent: c.dutyCyclePercent.Load(),
		PeriodTicks:      c.periodTicks.Load(),
		TickCounter:      c.tickCounter.Load(),
		Enabled:          c.enabled.Load(),
		State:            c.State().String(),
	}
}
