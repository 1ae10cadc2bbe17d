package spwm

// ChannelBuilder accumulates the configuration of a channel before it is
// built. Required fields can be set in any order; each field is validated
// on assignment so an error is attributable to the offending call.
// Build refuses to produce a channel until frequency, duty cycle and both
// callbacks have been set.
type ChannelBuilder struct {
	timerFrequencyHz uint32

	frequencyHz      uint32
	frequencySet     bool
	dutyCyclePercent uint8
	dutyCycleSet     bool
	onOffCallback    OnOffCallback
	periodCallback   PeriodCallback
}

// newChannelBuilder creates a builder bound to the timer frequency of the
// manager that will own the channel.
func newChannelBuilder(timerFrequencyHz uint32) *ChannelBuilder {
	return &ChannelBuilder{
		timerFrequencyHz: timerFrequencyHz,
	}
}

// SetFrequency stores the desired output frequency.
// Returns InvalidFrequencyError if the frequency is zero or the timer
// frequency is less than 100x the requested frequency.
func (b *ChannelBuilder) SetFrequency(frequencyHz uint32) error {
	if err := validateFrequency(frequencyHz, b.timerFrequencyHz); err != nil {
		return maskAny(err)
	}
	b.frequencyHz = frequencyHz
	b.frequencySet = true
	return nil
}

// SetDutyCycle stores the desired duty cycle percentage.
// Returns InvalidDutyCycleError if the percentage exceeds 100.
func (b *ChannelBuilder) SetDutyCycle(dutyCyclePercent uint8) error {
	if dutyCyclePercent > MaxDutyCycle {
		return maskAny(InvalidDutyCycleError)
	}
	b.dutyCyclePercent = dutyCyclePercent
	b.dutyCycleSet = true
	return nil
}

// SetOnOffCallback stores the callback invoked on state transitions.
func (b *ChannelBuilder) SetOnOffCallback(cb OnOffCallback) *ChannelBuilder {
	b.onOffCallback = cb
	return b
}

// SetPeriodCallback stores the callback invoked per completed period.
func (b *ChannelBuilder) SetPeriodCallback(cb PeriodCallback) *ChannelBuilder {
	b.periodCallback = cb
	return b
}

// Build produces a finished, disabled channel.
// Returns IncompleteConfigurationError if frequency, duty cycle or either
// callback is missing. The builder has no side effects besides field
// accumulation, so a failed Build leaves nothing behind.
func (b *ChannelBuilder) Build() (*Channel, error) {
	if !b.frequencySet || !b.dutyCycleSet || b.onOffCallback == nil || b.periodCallback == nil {
		return nil, maskAny(IncompleteConfigurationError)
	}
	c := &Channel{
		timerFrequencyHz: b.timerFrequencyHz,
		onOffCallback:    b.onOffCallback,
		periodCallback:   b.periodCallback,
	}
	periodTicks := b.timerFrequencyHz / b.frequencyHz
	onThresholdTicks := uint32(uint64(periodTicks) * uint64(b.dutyCyclePercent) / 100)
	c.frequencyHz.Store(b.frequencyHz)
	c.dutyCyclePercent.Store(uint32(b.dutyCyclePercent))
	c.periodTicks.Store(periodTicks)
	c.onThresholdTicks.Store(onThresholdTicks)
	if onThresholdTicks != 0 && onThresholdTicks == periodTicks {
		c.state.Store(true)
	}
	return c, nil
}
