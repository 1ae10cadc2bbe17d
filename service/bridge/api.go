//    Copyright 2024 Pulsenet Authors
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package bridge

import "github.com/pkg/errors"

var (
	maskAny = errors.WithStack
)

// API of the bridge, the hardware used to drive the actual output pins
// that software PWM channels toggle from their callbacks.
type API interface {
	// OutputPin returns the output pin with the given number,
	// configuring it for output on first use.
	OutputPin(pin int) (OutputPin, error)
	// Close brings all pins back to a safe (low) state.
	Close() error
}

// OutputPin is a single digital output.
type OutputPin interface {
	// Set the pin high (true) or low (false).
	Set(on bool) error
}
