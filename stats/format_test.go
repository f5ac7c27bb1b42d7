package stats

import "testing"

func TestOrdinal(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{1, "1st"},
		{2, "2nd"},
		{3, "3rd"},
		{4, "4th"},
		{11, "11th"},
		{12, "12th"},
		{13, "13th"},
		{21, "21st"},
		{22, "22nd"},
		{23, "23rd"},
		{101, "101st"},
		{111, "111th"},
		{112, "112th"},
		{113, "113th"},
		{121, "121st"},
	}
	for _, tc := range cases {
		if got := Ordinal(tc.n); got != tc.want {
			t.Errorf("Ordinal(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestFormatPlacement(t *testing.T) {
	if got := FormatPlacement(0); got != "-" {
		t.Errorf("FormatPlacement(0) = %q, want -", got)
	}
	if got := FormatPlacement(-3); got != "-" {
		t.Errorf("FormatPlacement(-3) = %q, want -", got)
	}
	if got := FormatPlacement(7); got != "7th" {
		t.Errorf("FormatPlacement(7) = %q, want 7th", got)
	}
}

func TestPlayerName(t *testing.T) {
	if got := PlayerName("Streamer#1234567"); got != "Streamer" {
		t.Errorf("PlayerName = %q, want Streamer", got)
	}
	if got := PlayerName("nohash"); got != "nohash" {
		t.Errorf("PlayerName = %q, want nohash", got)
	}
}

func TestRatio(t *testing.T) {
	if got := ratio(10, 0); got != "-" {
		t.Errorf("ratio(10, 0) = %q, want -", got)
	}
	if got := ratio(5, 2); got != "2.50" {
		t.Errorf("ratio(5, 2) = %q, want 2.50", got)
	}
}
