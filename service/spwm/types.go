package spwm

// State is the logical on/off state of a channel output.
type State byte

const (
	StateOff State = iota
	StateOn
)

// String returns a human readable representation of the state.
func (s State) String() string {
	if s == StateOn {
		return "on"
	}
	return "off"
}

// OnOffCallback is invoked on every logical state transition of a channel.
// It runs synchronously inside TickDispatch, so it must be short,
// non-blocking and must not call back into the manager.
type OnOffCallback func(State)

// PeriodCallback is invoked once per completed period of a channel.
// The same execution constraints as OnOffCallback apply.
type PeriodCallback func()

// ChannelID identifies a registered channel.
// Registration is append-only: identifiers are never reused for the
// lifetime of the manager.
type ChannelID int

// ChannelInfo is a point-in-time snapshot of a registered channel.
type ChannelInfo struct {
	ID               ChannelID `json:"id"`
	FrequencyHz      uint32    `json:"frequency_hz"`
	DutyCyclePercent uint32    `json:"duty_cycle_percent"`
	PeriodTicks      uint32    `json:"period_ticks"`
	TickCounter      uint32    `json:"tick_counter"`
	Enabled          bool      `json:"enabled"`
	State            string    `json:"state"`
}
