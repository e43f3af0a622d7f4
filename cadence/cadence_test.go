package cadence

import "testing"

func TestHoursPerItem(t *testing.T) {
	if got := HoursPerItem(22, 1); got != 1 {
		t.Errorf("HoursPerItem(22,1) = %v, want 1", got)
	}
	if got := HoursPerItem(20, 2); got != 1.5 {
		t.Errorf("HoursPerItem(20,2) = %v, want 1.5", got)
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		hour  int
		count int
		want  bool
	}{
		{"last hour single item", 22, 1, true},
		{"afternoon fast pace", 13, 7, true},
		{"afternoon two hours each", 13, 5, true},
		{"afternoon three hours each", 13, 3, false},
		{"evening one hour each", 19, 4, true},
		{"evening two hours each", 19, 2, true},
		{"late afternoon three hours each", 17, 2, true},
		{"evening too early", 18, 1, false},
		{"morning", 8, 2, false},
		{"morning behind schedule", 8, 20, true},
		{"end of day", 23, 1, true},
		{"nothing to post", 22, 0, false},
		{"nothing to post morning", 3, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.hour, tt.count); got != tt.want {
				t.Errorf("Decide(%d, %d) = %v, want %v", tt.hour, tt.count, got, tt.want)
			}
		})
	}
}

func TestShouldPostOverrides(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		hour  int
		count int
		want  bool
	}{
		{"heuristic waits", Options{}, 13, 3, false},
		{"force", Options{Force: true}, 13, 3, true},
		{"dry run", Options{DryRun: true}, 13, 3, true},
		{"force with nothing", Options{Force: true}, 13, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldPost(tt.opts, tt.hour, tt.count); got != tt.want {
				t.Errorf("ShouldPost() = %v, want %v", got, tt.want)
			}
		})
	}
}
