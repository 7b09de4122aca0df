package risk

import (
	"errors"
	"testing"
)

func TestKillSwitchLatchesFirstCause(t *testing.T) {
	var k KillSwitch
	if k.Tripped() || k.Check() != nil {
		t.Fatalf("expected fresh switch to allow orders")
	}
	k.Trip(nil)
	if k.Tripped() {
		t.Fatalf("nil error must not trip the switch")
	}

	first := errors.New("ambiguous holding")
	k.Trip(first)
	k.Trip(errors.New("later"))

	if !k.Tripped() {
		t.Fatalf("expected switch to be tripped")
	}
	if k.Err() != first {
		t.Fatalf("expected first cause, got %v", k.Err())
	}
	err := k.Check()
	if !errors.Is(err, ErrHalted) || !errors.Is(err, first) {
		t.Fatalf("expected check error to wrap halt and cause, got %v", err)
	}
}
