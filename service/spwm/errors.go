package spwm

import "github.com/pkg/errors"

var (
	InvalidFrequencyError        = errors.New("invalid frequency")
	IsInvalidFrequency           = isErrorFunc(InvalidFrequencyError)
	InvalidDutyCycleError        = errors.New("invalid duty cycle")
	IsInvalidDutyCycle           = isErrorFunc(InvalidDutyCycleError)
	IncompleteConfigurationError = errors.New("incomplete configuration")
	IsIncompleteConfiguration    = isErrorFunc(IncompleteConfigurationError)
	CapacityExceededError        = errors.New("capacity exceeded")
	IsCapacityExceeded           = isErrorFunc(CapacityExceededError)
	InvalidChannelError          = errors.New("invalid channel")
	IsInvalidChannel             = isErrorFunc(InvalidChannelError)
	AlreadyEnabledError          = errors.New("already enabled")
	IsAlreadyEnabled             = isErrorFunc(AlreadyEnabledError)
	AlreadyDisabledError         = errors.New("already disabled")
	IsAlreadyDisabled            = isErrorFunc(AlreadyDisabledError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
