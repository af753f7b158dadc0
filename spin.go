package shardrw

import (
	"errors"
	"fmt"
	"runtime"
	"time"
	_ "unsafe" // for linkname
)

// SpinPolicy selects how a goroutine waits between two polls of the lock
// state. It never changes what the goroutine is waiting for: the read and
// write protocols, and their lack of any fairness bound, are identical under
// every policy.
type SpinPolicy uint8

const (
	// SpinBusy is a pure busy-wait. Each poll is followed by the CPU pause
	// hint the runtime uses for its own active spinning. The goroutine never
	// yields to the scheduler and never sleeps.
	SpinBusy SpinPolicy = iota

	// SpinYield busy-waits like SpinBusy and calls runtime.Gosched every
	// yieldEvery polls. Useful when more goroutines spin than there are Ps.
	SpinYield

	// SpinBackoff spins actively while the runtime allows it and then
	// sleeps briefly before the next round of polls.
	SpinBackoff
)

const yieldEvery = 64

// ErrUnknownSpinPolicy is returned by ParseSpinPolicy for unrecognized names.
var ErrUnknownSpinPolicy = errors.New("shardrw: unknown spin policy")

func (p SpinPolicy) String() string {
	switch p {
	case SpinBusy:
		return "busy"
	case SpinYield:
		return "yield"
	case SpinBackoff:
		return "backoff"
	}
	return fmt.Sprintf("SpinPolicy(%d)", uint8(p))
}

// ParseSpinPolicy returns the policy named by s ("busy", "yield" or "backoff").
func ParseSpinPolicy(s string) (SpinPolicy, error) {
	switch s {
	case "busy", "":
		return SpinBusy, nil
	case "yield":
		return SpinYield, nil
	case "backoff":
		return SpinBackoff, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSpinPolicy, s)
}

func (p SpinPolicy) pause(spins *int) {
	switch p {
	case SpinYield:
		*spins++
		if *spins%yieldEvery == 0 {
			runtime.Gosched()
			return
		}
		runtime_doSpin()
	case SpinBackoff:
		delay(spins)
	default:
		runtime_doSpin()
	}
}

// backoffSleep is how long SpinBackoff sleeps once the runtime stops
// granting active spins. Long enough to free the P for a reader that was
// preempted inside its critical section, short next to a scheduler tick.
const backoffSleep = 500 * time.Microsecond

// noCopy makes `go vet -copylocks` flag copies of a Lock or LockGroup.
// Keep it as a named field, not embedded, so its methods stay unexported
// from the outer type.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// delay spins actively while the runtime allows it (multicore, other Ps
// running, few spins so far) and otherwise sleeps and restarts the count.
func delay(spins *int) {
	if runtime_canSpin(*spins) {
		*spins++
		runtime_doSpin()
		return
	}
	*spins = 0
	time.Sleep(backoffSleep)
}

// nolint:all
//
//go:linkname runtime_canSpin sync.runtime_canSpin
//goland:noinspection ALL
func runtime_canSpin(i int) bool

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()
