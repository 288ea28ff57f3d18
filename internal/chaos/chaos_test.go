package chaos

import (
	"sync"
	"testing"
	"time"
)

func TestFaultInjector_Basic(t *testing.T) {
	injector := NewFaultInjector(FaultConfig{
		Type:        FaultDrop,
		Probability: 1.0, // Always inject
	})

	if fault, _ := injector.MaybeInject(); fault != FaultDrop {
		t.Errorf("MaybeInject() = %v, want drop", fault)
	}

	stats := injector.GetStats()
	if stats[FaultDrop] != 1 {
		t.Errorf("stats[drop] = %d, want 1", stats[FaultDrop])
	}
}

func TestFaultInjector_Disabled(t *testing.T) {
	injector := NewFaultInjector(FaultConfig{
		Type:        FaultDrop,
		Probability: 1.0,
	})

	injector.Disable()
	if injector.IsEnabled() {
		t.Error("IsEnabled() = true after Disable")
	}
	if fault, _ := injector.MaybeInject(); fault != FaultNone {
		t.Errorf("MaybeInject() = %v, want none when disabled", fault)
	}

	injector.Enable()
	if fault, _ := injector.MaybeInject(); fault != FaultDrop {
		t.Errorf("MaybeInject() = %v, want drop after Enable", fault)
	}
}

func TestFaultInjector_Probability(t *testing.T) {
	injector := NewFaultInjector(FaultConfig{
		Type:        FaultDrop,
		Probability: 0.0,
	})

	for i := 0; i < 100; i++ {
		if fault, _ := injector.MaybeInject(); fault != FaultNone {
			t.Fatalf("MaybeInject() = %v with 0%% probability", fault)
		}
	}
}

func TestFaultInjector_Seeded(t *testing.T) {
	cfg := FaultConfig{Type: FaultDrop, Probability: 0.5}
	a := NewSeededFaultInjector(42, cfg)
	b := NewSeededFaultInjector(42, cfg)

	for i := 0; i < 50; i++ {
		fa, _ := a.MaybeInject()
		fb, _ := b.MaybeInject()
		if fa != fb {
			t.Fatalf("datagram %d: %v != %v with the same seed", i, fa, fb)
		}
	}
}

func TestFaultInjector_Delay(t *testing.T) {
	injector := NewFaultInjector(FaultConfig{
		Type:        FaultDelay,
		Probability: 1.0,
		MinDelay:    10 * time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
	})

	fault, delay := injector.MaybeInject()
	if fault != FaultDelay {
		t.Fatalf("MaybeInject() = %v, want delay", fault)
	}
	if delay < 10*time.Millisecond || delay > 20*time.Millisecond {
		t.Errorf("delay %v outside expected range [10ms, 20ms]", delay)
	}
}

func TestFaultInjector_FixedDelay(t *testing.T) {
	injector := NewFaultInjector(FaultConfig{
		Type:        FaultDelay,
		Probability: 1.0,
		MinDelay:    5 * time.Millisecond,
	})

	if _, delay := injector.MaybeInject(); delay != 5*time.Millisecond {
		t.Errorf("delay = %v, want 5ms", delay)
	}
}

func TestFaultInjector_FirstMatchWins(t *testing.T) {
	injector := NewFaultInjector(
		FaultConfig{Type: FaultDuplicate, Probability: 1.0},
		FaultConfig{Type: FaultDrop, Probability: 1.0},
	)

	if fault, _ := injector.MaybeInject(); fault != FaultDuplicate {
		t.Errorf("MaybeInject() = %v, want duplicate", fault)
	}
	if got := injector.GetStats()[FaultDrop]; got != 0 {
		t.Errorf("stats[drop] = %d, want 0", got)
	}
}

func TestFaultInjector_Reset(t *testing.T) {
	injector := NewFaultInjector(FaultConfig{
		Type:        FaultDuplicate,
		Probability: 1.0,
	})

	for i := 0; i < 5; i++ {
		injector.MaybeInject()
	}
	if got := injector.GetStats()[FaultDuplicate]; got != 5 {
		t.Errorf("stats[duplicate] = %d, want 5", got)
	}

	injector.Reset()
	if len(injector.GetStats()) != 0 {
		t.Error("expected empty stats after reset")
	}
}

func TestFaultInjector_Concurrent(t *testing.T) {
	injector := NewFaultInjector(FaultConfig{
		Type:        FaultDrop,
		Probability: 0.5,
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				injector.MaybeInject()
			}
		}()
	}
	wg.Wait()

	if got := injector.GetStats()[FaultDrop]; got > 1000 {
		t.Errorf("stats[drop] = %d, want <= 1000", got)
	}
}

func TestFaultType_String(t *testing.T) {
	tests := []struct {
		fault FaultType
		want  string
	}{
		{FaultNone, "none"},
		{FaultDrop, "drop"},
		{FaultDuplicate, "duplicate"},
		{FaultDelay, "delay"},
		{FaultType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.fault.String(); got != tt.want {
			t.Errorf("FaultType(%d).String() = %q, want %q", int(tt.fault), got, tt.want)
		}
	}
}
