package clock

import "time"

// Clock is the single time source injected into the engine so that
// window evaluation and expiry are testable without wall-clock delays.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func Real() Clock { return realClock{} }

// Func adapts a plain function to a Clock; tests use it to pin time.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
