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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/pulsenet/SoftPWM/service/bridge"
	"github.com/pulsenet/SoftPWM/service/monitor"
	"github.com/pulsenet/SoftPWM/service/server"
	"github.com/pulsenet/SoftPWM/service/spwm"
	"github.com/pulsenet/SoftPWM/service/timer"
)

const (
	projectName       = "SoftPWM Worker"
	defaultServerPort = 7131
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

func main() {
	var levelFlag string
	var serverHost string
	var serverPort int
	var bridgeType string
	var timerFrequency uint32
	var capacity int
	var pinA, pinB int

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", "stub", "Type of bridge to use (gpio|stub)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.Uint32Var(&timerFrequency, "timer-frequency", 100000, "Simulated hardware timer frequency in Hz")
	pflag.IntVar(&capacity, "capacity", 8, "Number of channel slots")
	pflag.IntVar(&pinA, "pin-a", 23, "GPIO pin driven by the first demo channel")
	pflag.IntVar(&pinB, "pin-b", 24, "GPIO pin driven by the second demo channel")
	pflag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(levelFlag); err == nil {
		logger = logger.Level(level)
	}

	var br bridge.API
	var err error
	switch bridgeType {
	case "gpio":
		br, err = bridge.NewGPIOBridge()
		if err != nil {
			Exitf("Failed to initialize GPIO bridge: %v\n", err)
		}
	case "stub":
		br = bridge.NewStub()
	default:
		Exitf("Unknown bridge type '%s' (gpio|stub)\n", bridgeType)
	}

	mgr, err := spwm.NewManager(spwm.Config{
		TimerFrequencyHz: timerFrequency,
		Capacity:         capacity,
	}, spwm.Dependencies{
		Log: logger,
		OnTimerStart: func() {
			logger.Info().Msg("First channel enabled, hardware timer would start now")
		},
		OnTimerStop: func() {
			logger.Info().Msg("Last channel disabled, hardware timer would stop now")
		},
	})
	if err != nil {
		Exitf("Failed to initialize channel manager: %v\n", err)
	}

	mon := monitor.New(logger)
	mon.SubscribeStateChanges(func(evt monitor.StateChange) {
		logger.Debug().
			Str("channel", evt.Channel).
			Str("state", evt.State.String()).
			Msg("State changed")
	})

	demoChannels := []struct {
		name        string
		pin         int
		frequencyHz uint32
		dutyCycle   uint8
	}{
		{name: "a", pin: pinA, frequencyHz: 1000, dutyCycle: 25},
		{name: "b", pin: pinB, frequencyHz: 200, dutyCycle: 50},
	}
	for _, dc := range demoChannels {
		if err := setupChannel(mgr, br, mon, dc.name, dc.pin, dc.frequencyHz, dc.dutyCycle); err != nil {
			Exitf("Failed to setup channel %s: %v\n", dc.name, err)
		}
	}

	src, err := timer.NewSource(timer.Config{
		FrequencyHz: timerFrequency,
	}, timer.Dependencies{
		Log:      logger,
		Dispatch: mgr.TickDispatch,
	})
	if err != nil {
		Exitf("Failed to initialize timer source: %v\n", err)
	}

	httpServer, err := server.NewServer(server.Config{
		Host:     serverHost,
		HTTPPort: serverPort,
	}, mgr, logger)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return src.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	err = g.Wait()

	if cerr := mgr.Close(); cerr != nil {
		logger.Error().Err(cerr).Msg("Failed to close channel manager")
	}
	if cerr := br.Close(); cerr != nil {
		logger.Error().Err(cerr).Msg("Failed to close bridge")
	}
	if err != nil {
		Exitf("Service run failed: %#v", err)
	}
}

// setupChannel configures, registers and enables a single demo channel
// that drives the given pin and reports transitions to the monitor.
func setupChannel(mgr spwm.Manager, br bridge.API, mon *monitor.Monitor, name string, pin int, frequencyHz uint32, dutyCycle uint8) error {
	outputPin, err := br.OutputPin(pin)
	if err != nil {
		return maskAny(err)
	}
	monCb := mon.OnOffCallback(name)
	builder := mgr.CreateChannel()
	if err := builder.SetFrequency(frequencyHz); err != nil {
		return maskAny(err)
	}
	if err := builder.SetDutyCycle(dutyCycle); err != nil {
		return maskAny(err)
	}
	builder.SetOnOffCallback(func(state spwm.State) {
		_ = outputPin.Set(state == spwm.StateOn)
		monCb(state)
	})
	builder.SetPeriodCallback(mon.PeriodCallback(name))
	channel, err := builder.Build()
	if err != nil {
		return maskAny(err)
	}
	id, err := mgr.RegisterChannel(channel)
	if err != nil {
		return maskAny(err)
	}
	registered, err := mgr.GetChannel(id)
	if err != nil {
		return maskAny(err)
	}
	if err := registered.Enable(); err != nil {
		return maskAny(err)
	}
	return nil
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
