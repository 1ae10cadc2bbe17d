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
	"strconv"
	"sync/atomic"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Manager owns a fixed-capacity collection of software PWM channels and
// dispatches the shared hardware tick to all of them.
type Manager interface {
	// CreateChannel returns a builder for a new channel, bound to the
	// timer frequency of this manager.
	CreateChannel() *ChannelBuilder
	// RegisterChannel moves a built channel into the first free slot and
	// returns its identifier.
	// Returns CapacityExceededError when all slots are occupied.
	RegisterChannel(c *Channel) (ChannelID, error)
	// GetChannel returns the channel registered under the given identifier.
	// Returns InvalidChannelError if the identifier does not refer to an
	// occupied slot.
	GetChannel(id ChannelID) (*Channel, error)
	// TickDispatch advances every enabled channel by one tick, in slot
	// order. The caller's interrupt handler must invoke this once per
	// hardware timer interrupt.
	TickDispatch()
	// TimerFrequencyHz returns the sampling rate of the driving interrupt.
	TimerFrequencyHz() uint32
	// Capacity returns the fixed number of channel slots.
	Capacity() int
	// TicksDispatched returns the total number of dispatched ticks.
	TicksDispatched() uint64
	// Channels returns a snapshot of all registered channels.
	Channels() []ChannelInfo
	// Close disables all enabled channels.
	Close() error
}

// Config holds the construction-time constants of a manager.
type Config struct {
	// TimerFrequencyHz is the rate at which the caller invokes TickDispatch.
	TimerFrequencyHz uint32
	// Capacity is the fixed number of channel slots.
	Capacity int
}

// Dependencies holds the external collaborators of a manager.
type Dependencies struct {
	Log zerolog.Logger
	// OnTimerStart is invoked when the first channel becomes enabled,
	// so the caller can start its hardware timer. May be nil.
	OnTimerStart func()
	// OnTimerStop is invoked when the last enabled channel is disabled,
	// so the caller can stop its hardware timer. May be nil.
	OnTimerStop func()
}

type manager struct {
	Config
	Dependencies

	// Slot array, allocated once at construction. Registration is
	// append-only: slots are never vacated and identifiers never reused.
	slots        []*Channel
	occupied     int
	enabledCount atomic.Int32
	ticks        atomic.Uint64
}

// NewManager creates an empty manager with the given capacity and timer
// frequency. No memory is allocated after construction.
func NewManager(conf Config, deps Dependencies) (Manager, error) {
	if conf.TimerFrequencyHz == 0 {
		return nil, errors.Wrap(InvalidFrequencyError, "timer frequency must be positive")
	}
	if conf.Capacity <= 0 {
		return nil, errors.Wrapf(CapacityExceededError, "capacity must be positive, got %d", conf.Capacity)
	}
	deps.Log = deps.Log.With().Str("component", "spwm").Logger()
	return &manager{
		Config:       conf,
		Dependencies: deps,
		slots:        make([]*Channel, conf.Capacity),
	}, nil
}

// CreateChannel returns a builder for a new channel.
func (s *manager) CreateChannel() *ChannelBuilder {
	return newChannelBuilder(s.Config.TimerFrequencyHz)
}

// RegisterChannel moves a built channel into the first free slot.
func (s *manager) RegisterChannel(c *Channel) (ChannelID, error) {
	if c == nil {
		return 0, errors.Wrap(InvalidChannelError, "channel is nil")
	}
	if c.mgr != nil {
		return 0, errors.Wrap(InvalidChannelError, "channel is already registered")
	}
	for i, slot := range s.slots {
		if slot != nil {
			continue
		}
		id := ChannelID(i)
		c.mgr = s
		c.id = id
		label := strconv.Itoa(i)
		c.transitionsTotal = stateTransitionsTotal.WithLabelValues(label)
		c.periodsTotal = periodsCompletedTotal.WithLabelValues(label)
		s.slots[i] = c
		s.occupied++
		channelsRegistered.Inc()
		s.Log.Debug().
			Int("id", i).
			Uint32("frequency", c.frequencyHz.Load()).
			Uint32("duty_cycle", c.dutyCyclePercent.Load()).
			Msg("Registered channel")
		return id, nil
	}
	return 0, maskAny(CapacityExceededError)
}

// GetChannel returns the channel registered under the given identifier.
func (s *manager) GetChannel(id ChannelID) (*Channel, error) {
	if id < 0 || int(id) >= len(s.slots) || s.slots[id] == nil {
		return nil, errors.Wrapf(InvalidChannelError, "no channel registered with id %d", id)
	}
	return s.slots[id], nil
}

// TickDispatch advances every occupied, enabled channel in slot order.
// Slot order is the only callback ordering guarantee within a tick.
func (s *manager) TickDispatch() {
	for _, c := range s.slots {
		if c != nil && c.enabled.Load() {
			c.advanceTick()
		}
	}
	s.ticks.Add(1)
	tickDispatchesTotal.Inc()
}

// TimerFrequencyHz returns the sampling rate of the driving interrupt.
func (s *manager) TimerFrequencyHz() uint32 {
	return s.Config.TimerFrequencyHz
}

// Capacity returns the fixed number of channel slots.
func (s *manager) Capacity() int {
	return s.Config.Capacity
}

// TicksDispatched returns the total number of dispatched ticks.
func (s *manager) TicksDispatched() uint64 {
	return s.ticks.Load()
}

// Channels returns a snapshot of all registered channels, in slot order.
func (s *manager) Channels() []ChannelInfo {
	result := make([]ChannelInfo, 0, s.occupied)
	for i, c := range s.slots {
		if c != nil {
			result = append(result, c.info(ChannelID(i)))
		}
	}
	return result
}

// Close disables all enabled channels, leaving every output Off.
func (s *manager) Close() error {
	var ae aerr.AggregateError
	for _, c := range s.slots {
		if c == nil || !c.enabled.Load() {
			continue
		}
		if err := c.Disable(); err != nil && !IsAlreadyDisabled(err) {
			ae.Add(maskAny(err))
		}
	}
	return ae.AsError()
}

// channelEnabled is called by a channel when it becomes enabled.
func (s *manager) channelEnabled(id ChannelID) {
	channelsEnabled.Inc()
	s.Log.Debug().Int("id", int(id)).Msg("Channel enabled")
	if s.enabledCount.Add(1) == 1 && s.OnTimerStart != nil {
		s.OnTimerStart()
	}
}

// channelDisabled is called by a channel when it becomes disabled.
func (s *manager) channelDisabled(id ChannelID) {
	channelsEnabled.Dec()
	s.Log.Debug().Int("id", int(id)).Msg("Channel disabled")
	if s.enabledCount.Add(-1) == 0 && s.OnTimerStop != nil {
		s.OnTimerStop()
	}
}
