package duration

import "testing"

func TestEncode(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "PT0M0S"},
		{45, "PT0M45S"},
		{60, "PT1M0S"},
		{1500, "PT25M0S"},
		{1545, "PT25M45S"},
		{-10, "PT0M0S"},
	}
	for _, c := range cases {
		if got := Encode(c.seconds); got != c.want {
			t.Errorf("Encode(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"PT25M0S", 1500},
		{"PT0M45S", 45},
		{"PT10M", 600},
		{"300", 300},
		{"", 0},
		{"garbage", 0},
		{"PTM", 0},
		{"PT5M5", 0},
	}
	for _, c := range cases {
		if got := Decode(c.text); got != c.want {
			t.Errorf("Decode(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for s := 0; s < 7200; s += 7 {
		if got := Decode(Encode(s)); got != s {
			t.Fatalf("round trip broke at %d: got %d", s, got)
		}
	}
}
