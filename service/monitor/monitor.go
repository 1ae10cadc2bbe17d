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

// Package monitor forwards channel callback events to foreground
// subscribers, so observers do not have to share mutable state with the
// tick dispatch context.
package monitor

import (
	"context"

	"github.com/mattn/go-pubsub"
	"github.com/rs/zerolog"

	"github.com/pulsenet/SoftPWM/service/spwm"
)

// StateChange is published on every logical state transition.
type StateChange struct {
	Channel string
	State   spwm.State
}

// PeriodComplete is published once per completed period.
type PeriodComplete struct {
	Channel string
}

// Monitor fabricates channel callbacks that publish events, and lets
// foreground code subscribe to them.
type Monitor struct {
	log          zerolog.Logger
	stateChanges *pubsub.PubSub
	periods      *pubsub.PubSub
}

// New creates a new Monitor.
func New(log zerolog.Logger) *Monitor {
	return &Monitor{
		log:          log.With().Str("component", "monitor").Logger(),
		stateChanges: pubsub.New(),
		periods:      pubsub.New(),
	}
}

// OnOffCallback returns an on/off callback that publishes a StateChange
// for the channel with the given name.
func (m *Monitor) OnOffCallback(name string) spwm.OnOffCallback {
	return func(state spwm.State) {
		m.stateChanges.Pub(StateChange{Channel: name, State: state})
	}
}

// PeriodCallback returns a period callback that publishes a
// PeriodComplete for the channel with the given name.
func (m *Monitor) PeriodCallback(name string) spwm.PeriodCallback {
	return func() {
		m.periods.Pub(PeriodComplete{Channel: name})
	}
}

// SubscribeStateChanges registers a receiver for state change events.
// The returned function cancels the subscription.
func (m *Monitor) SubscribeStateChanges(cb func(StateChange)) context.CancelFunc {
	m.stateChanges.Sub(cb)
	return func() {
		m.stateChanges.Leave(cb)
	}
}

// SubscribePeriods registers a receiver for period completion events.
// The returned function cancels the subscription.
func (m *Monitor) SubscribePeriods(cb func(PeriodComplete)) context.CancelFunc {
	m.periods.Sub(cb)
	return func() {
		m.periods.Leave(cb)
	}
}
