package clock

import (
	"testing"
	"time"
)

func TestSystem_IsUTC(t *testing.T) {
	if loc := (System{}).Now().Location(); loc != time.UTC {
		t.Errorf("System.Now location = %v, want UTC", loc)
	}
}

func TestManual_SetAndAdvance(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewManual(start)
	if !m.Now().Equal(start) {
		t.Fatalf("Now = %v, want %v", m.Now(), start)
	}
	m.Advance(time.Millisecond)
	if got := m.Now().Sub(start); got != time.Millisecond {
		t.Errorf("after Advance: delta = %v, want 1ms", got)
	}
	m.Set(start)
	if !m.Now().Equal(start) {
		t.Errorf("after Set: Now = %v, want %v", m.Now(), start)
	}
}
