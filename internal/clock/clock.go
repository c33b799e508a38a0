package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock is the time source used by every component that reasons about
// subscription windows or stamps ledger rows.
type Clock interface {
	Now() time.Time
}

// SystemClock reads wall-clock time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func New() Clock {
	return SystemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(New),
)
