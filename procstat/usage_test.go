package procstat

import (
	"testing"
	"time"
)

func TestUsage_Derived(t *testing.T) {
	u := Usage{
		UserCPU:   300 * time.Millisecond,
		SystemCPU: 200 * time.Millisecond,
		FSReads:   4,
		FSWrites:  6,
	}
	if got := u.CPUTime(); got != 500*time.Millisecond {
		t.Errorf("CPUTime() = %v, want 500ms", got)
	}
	if got := u.FSOps(); got != 10 {
		t.Errorf("FSOps() = %d, want 10", got)
	}
}

func TestCPUPercent(t *testing.T) {
	u := Usage{UserCPU: time.Second}
	tests := []struct {
		name   string
		uptime time.Duration
		want   float64
	}{
		{"half a core", 2 * time.Second, 50},
		{"zero uptime", 0, 0},
		{"negative uptime", -time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CPUPercent(u, tt.uptime); got != tt.want {
				t.Errorf("CPUPercent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeapBytes(t *testing.T) {
	n, err := HeapBytes()
	if err != nil {
		t.Fatalf("HeapBytes failed: %v", err)
	}
	if n == 0 {
		t.Error("HeapBytes() = 0 for a running test binary")
	}
}

func TestSystemSampler(t *testing.T) {
	s := System()
	if s.Uptime() <= 0 {
		t.Error("Uptime() should be positive")
	}
	if _, err := s.HeapBytes(); err != nil {
		t.Errorf("HeapBytes failed: %v", err)
	}
}
