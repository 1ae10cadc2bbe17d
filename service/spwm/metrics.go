package spwm

import (
	"github.com/pulsenet/SoftPWM/pkg/metrics"
)

const (
	subSystem = "spwm"
)

var (
	// Number of registered channels
	channelsRegistered = metrics.MustRegisterGauge(subSystem,
		"channels_registered",
		"Number of registered channels")

	// Number of enabled channels
	channelsEnabled = metrics.MustRegisterGauge(subSystem,
		"channels_enabled",
		"Number of enabled channels")

	// Number of dispatched ticks
	tickDispatchesTotal = metrics.MustRegisterCounter(subSystem,
		"tick_dispatches_total",
		"Number of dispatched hardware ticks")

	// State transition metrics
	stateTransitionsTotal = metrics.MustRegisterCounterVec(subSystem,
		"state_transitions_total",
		"Number of logical state transitions per channel",
		"id")

	// Period completion metrics
	periodsCompletedTotal = metrics.MustRegisterCounterVec(subSystem,
		"periods_completed_total",
		"Number of completed periods per channel",
		"id")
)
