package services

import "testing"

func TestCalculateLevel(t *testing.T) {
	cases := []struct {
		energy int
		want   int
	}{
		{0, 1},
		{-50, 1},   // clamped
		{100, 2},   // log2(2)+1
		{250, 2},   // log2(3.5) floors to 1
		{300, 3},   // log2(4)+1
		{700, 4},   // log2(8)+1
		{1500, 5},  // log2(16)+1
		{10000, 7}, // log2(101) floors to 6
	}

	for _, tc := range cases {
		if got := CalculateLevel(tc.energy); got != tc.want {
			t.Errorf("CalculateLevel(%d) = %d, want %d", tc.energy, got, tc.want)
		}
	}
}
