package types

import "testing"

func TestResultColor(t *testing.T) {
	tests := []struct {
		result int
		want   string
	}{
		{0, ColorViolet},
		{1, ColorGreen},
		{2, ColorRed},
		{3, ColorGreen},
		{4, ColorRed},
		{5, ColorViolet},
		{6, ColorRed},
		{7, ColorGreen},
		{8, ColorRed},
		{9, ColorGreen},
	}

	for _, tt := range tests {
		got := ResultColor(tt.result)
		if got != tt.want {
			t.Errorf("ResultColor(%d) = %q, want %q", tt.result, got, tt.want)
		}
	}
}

func TestResultSize(t *testing.T) {
	for result := 0; result <= 9; result++ {
		want := SizeSmall
		if result >= 5 {
			want = SizeBig
		}
		got := ResultSize(result)
		if got != want {
			t.Errorf("ResultSize(%d) = %q, want %q", result, got, want)
		}
	}
}
