package testkit

import (
	"testing"
	"time"
)

var (
	sleepFn     = time.Sleep
	swapTargetI = 10
)

func TestSwap_FunctionAndRestore(t *testing.T) {
	var slept time.Duration
	t.Run("swap-in-subtest", func(t *testing.T) {
		Swap(t, &sleepFn, func(d time.Duration) { slept = d })
		sleepFn(time.Hour)
		if slept != time.Hour {
			t.Fatalf("swap did not take effect, slept %v", slept)
		}
	})

	// Cleanup ran when the subtest finished; the real sleep is back
	start := time.Now()
	sleepFn(time.Millisecond)
	if time.Since(start) < time.Millisecond {
		t.Fatalf("swap did not restore original")
	}
}

func TestSwap_NonFunctionType(t *testing.T) {
	t.Run("int", func(t *testing.T) {
		if swapTargetI != 10 {
			t.Fatalf("precondition failed, got %d", swapTargetI)
		}
		Swap(t, &swapTargetI, 42)
		if swapTargetI != 42 {
			t.Fatalf("swap failed, got %d want 42", swapTargetI)
		}
	})
	if swapTargetI != 10 {
		t.Fatalf("swap did not restore original, got %d want 10", swapTargetI)
	}
}
