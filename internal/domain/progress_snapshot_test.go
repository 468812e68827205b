package domain

import "testing"

func TestNewProgressSnapshot(t *testing.T) {
	t.Parallel() // Enable parallel execution

	snapshot, err := NewProgressSnapshot("2026-02-18")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if snapshot.Rank != 1 {
		t.Errorf("Expected initial rank 1, got %d", snapshot.Rank)
	}

	if snapshot.MeditationCountTotal != 0 || snapshot.SpendAvoidedCountTotal != 0 {
		t.Error("Expected zeroed counters")
	}

	if snapshot.DaySuccess {
		t.Error("Expected a fresh snapshot to not be a success day")
	}

	// Test invalid date
	_, err = NewProgressSnapshot("18-02-2026")
	if err != ErrInvalidDate {
		t.Errorf("Expected error %v, got %v", ErrInvalidDate, err)
	}
}

func TestProgressSnapshotValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		mutate   func(*ProgressSnapshot)
		expected error
	}{
		{
			name:     "valid snapshot",
			mutate:   func(s *ProgressSnapshot) {},
			expected: nil,
		},
		{
			name:     "negative meditation count",
			mutate:   func(s *ProgressSnapshot) { s.MeditationCountTotal = -1 },
			expected: ErrSnapshotCountNegative,
		},
		{
			name:     "negative streak",
			mutate:   func(s *ProgressSnapshot) { s.StreakDays = -2 },
			expected: ErrSnapshotCountNegative,
		},
		{
			name:     "rank below one",
			mutate:   func(s *ProgressSnapshot) { s.Rank = 0 },
			expected: ErrSnapshotRankInvalid,
		},
		{
			name:     "malformed last success date",
			mutate:   func(s *ProgressSnapshot) { s.LastSuccessDate = "2026/02/18" },
			expected: ErrInvalidDate,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snapshot, err := NewProgressSnapshot("2026-02-18")
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			tc.mutate(snapshot)

			if err := snapshot.Validate(); err != tc.expected {
				t.Errorf("Expected error %v, got %v", tc.expected, err)
			}
		})
	}
}

func TestIsValidDay(t *testing.T) {
	t.Parallel()

	valid := []string{"2026-02-18", "2025-12-31", "2024-02-29"}
	for _, d := range valid {
		if !IsValidDay(d) {
			t.Errorf("Expected %q to be a valid day", d)
		}
	}

	invalid := []string{"", "2026-2-18", "2026-02-30", "18-02-2026", "2026-02-18T00:00:00Z"}
	for _, d := range invalid {
		if IsValidDay(d) {
			t.Errorf("Expected %q to be an invalid day", d)
		}
	}
}
