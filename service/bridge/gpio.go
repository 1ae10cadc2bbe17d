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

import (
	"sync"

	"github.com/ecc1/gpio"
)

type gpioBridge struct {
	mutex sync.Mutex
	pins  map[int]gpio.OutputPin
}

// NewGPIOBridge implements the bridge on top of the Linux sysfs GPIO
// interface. Pin numbers use BCM numbering.
func NewGPIOBridge() (API, error) {
	return &gpioBridge{
		pins: make(map[int]gpio.OutputPin),
	}, nil
}

// OutputPin returns the output pin with the given number,
// exporting and configuring it on first use.
func (b *gpioBridge) OutputPin(pin int) (OutputPin, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if p, found := b.pins[pin]; found {
		return &gpioPin{pin: p}, nil
	}
	activeLow := false
	initialValue := false
	p, err := gpio.Output(pin, activeLow, initialValue)
	if err != nil {
		return nil, maskAny(err)
	}
	b.pins[pin] = p
	return &gpioPin{pin: p}, nil
}

// Close brings all pins back to low.
func (b *gpioBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, p := range b.pins {
		if err := p.Write(false); err != nil {
			return maskAny(err)
		}
	}
	return nil
}

type gpioPin struct {
	pin gpio.OutputPin
}

// Set the pin high (true) or low (false).
func (p *gpioPin) Set(on bool) error {
	if err := p.pin.Write(on); err != nil {
		return maskAny(err)
	}
	return nil
}
