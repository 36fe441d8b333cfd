package ids

import "testing"

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"generated", New(), true},
		{"empty", "", false},
		{"nil uuid", "00000000-0000-0000-0000-000000000000", false},
		{"garbage", "device-1", false},
		{"upper case", "7B0F3C1E-4A57-4D0E-9A51-6F0B7C1D2E01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.id); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestNewUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("New returned duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestNewOrdered(t *testing.T) {
	prev := New()
	for i := 0; i < 1000; i++ {
		id := New()
		if id <= prev {
			t.Fatalf("New = %q, not after %q", id, prev)
		}
		prev = id
	}
}
