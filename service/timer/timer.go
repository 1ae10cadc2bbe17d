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

// Package timer provides a host-side stand-in for the periodic hardware
// timer interrupt that drives tick dispatch.
package timer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	maskAny = errors.WithStack

	// InvalidConfigError indicates a zero frequency or missing dispatch function.
	InvalidConfigError = errors.New("invalid timer configuration")
)

// Source invokes a dispatch function at a fixed frequency until its
// context is cancelled.
type Source interface {
	// Run the timer source until the given context is cancelled.
	Run(ctx context.Context) error
}

type Config struct {
	// FrequencyHz is the rate at which Dispatch is invoked.
	FrequencyHz uint32
}

type Dependencies struct {
	Log zerolog.Logger
	// Dispatch is invoked once per elapsed tick.
	Dispatch func()
}

type source struct {
	Config
	Dependencies
}

// NewSource creates a timer source with the given frequency.
func NewSource(conf Config, deps Dependencies) (Source, error) {
	if conf.FrequencyHz == 0 {
		return nil, errors.Wrap(InvalidConfigError, "frequency must be positive")
	}
	if deps.Dispatch == nil {
		return nil, errors.Wrap(InvalidConfigError, "dispatch function must be set")
	}
	deps.Log = deps.Log.With().Str("component", "timer").Logger()
	return &source{
		Config:       conf,
		Dependencies: deps,
	}, nil
}

// Run the timer source until the given context is cancelled.
// The wall clock decides how many ticks are due at every wakeup, so a
// frequency above the ticker resolution is served by dispatching several
// ticks per wakeup instead of dropping them.
func (s *source) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.FrequencyHz)
	resolution := interval
	if resolution < time.Millisecond {
		resolution = time.Millisecond
	}
	s.Log.Debug().
		Uint32("frequency", s.FrequencyHz).
		Str("resolution", resolution.String()).
		Msg("Timer source started")

	t := time.NewTicker(resolution)
	defer t.Stop()

	start := time.Now()
	var dispatched uint64
	for {
		select {
		case <-ctx.Done():
			s.Log.Debug().Msg("Timer source stopped")
			return nil
		case now := <-t.C:
			due := uint64(now.Sub(start).Seconds() * float64(s.FrequencyHz))
			for dispatched < due {
				s.Dispatch()
				dispatched++
			}
		}
	}
}
