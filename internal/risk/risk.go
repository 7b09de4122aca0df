package risk

import (
	"errors"
	"sync"
)

// ErrHalted is returned by Check once the switch has tripped.
var ErrHalted = errors.New("order placement halted")

// KillSwitch latches the first fatal error of a run and blocks further orders.
type KillSwitch struct {
	mu  sync.Mutex
	err error
}

// Trip records err as the halt cause. Later trips keep the first cause.
func (k *KillSwitch) Trip(err error) {
	if err == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err == nil {
		k.err = err
	}
}

// Tripped reports whether order placement is halted.
func (k *KillSwitch) Tripped() bool {
	return k.Err() != nil
}

// Err returns the cause of the halt, or nil.
func (k *KillSwitch) Err() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.err
}

// Check returns nil while orders may be placed, and an error wrapping both
// ErrHalted and the trip cause afterwards.
func (k *KillSwitch) Check() error {
	if err := k.Err(); err != nil {
		return errors.Join(ErrHalted, err)
	}
	return nil
}
