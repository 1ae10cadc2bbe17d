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

package bridge

import "sync"

// NewStub creates a bridge that records pin states in memory.
// Used for tests and for runs on machines without GPIO hardware.
func NewStub() *Stub {
	return &Stub{
		pins: make(map[int]*StubPin),
	}
}

// Stub is an in-memory implementation of the bridge API.
type Stub struct {
	mutex sync.Mutex
	pins  map[int]*StubPin
}

// OutputPin returns the output pin with the given number.
func (s *Stub) OutputPin(pin int) (OutputPin, error) {
	return s.Pin(pin), nil
}

// Pin returns the stub pin with the given number, creating it when needed.
func (s *Stub) Pin(pin int) *StubPin {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if p, found := s.pins[pin]; found {
		return p
	}
	p := &StubPin{}
	s.pins[pin] = p
	return p
}

// Close brings all pins back to low.
func (s *Stub) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, p := range s.pins {
		_ = p.Set(false)
	}
	return nil
}

// StubPin is an in-memory output pin that counts its transitions.
type StubPin struct {
	mutex       sync.Mutex
	on          bool
	transitions int
}

// Set the pin high (true) or low (false).
func (p *StubPin) Set(on bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.on != on {
		p.transitions++
	}
	p.on = on
	return nil
}

// Get returns the current pin state.
func (p *StubPin) Get() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.on
}

// Transitions returns the number of state changes seen by the pin.
func (p *StubPin) Transitions() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.transitions
}
