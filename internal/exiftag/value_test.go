package exiftag

import "testing"

func TestRationalFloat(t *testing.T) {
	cases := []struct {
		r    Rational
		want float64
	}{
		{Rational{1, 125}, 0.008},
		{Rational{8, 1}, 8},
		{Rational{-3, 2}, -1.5},
		{Rational{5, 0}, 0},
		{Rational{0, 0}, 0},
	}
	for _, tc := range cases {
		if got := tc.r.Float(); got != tc.want {
			t.Fatalf("%v: expected %v, got %v", tc.r, tc.want, got)
		}
	}
}

func TestLowerLeavesNonRationalValues(t *testing.T) {
	if got := Lower(Rational{1, 4}); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	if got := Lower("N"); got != "N" {
		t.Fatalf("expected string passthrough, got %v", got)
	}
	if got := Lower(int64(3)); got != int64(3) {
		t.Fatalf("expected int passthrough, got %v", got)
	}
}

func TestAsFloat(t *testing.T) {
	if f, ok := AsFloat(int64(200)); !ok || f != 200 {
		t.Fatalf("expected 200, got %v %v", f, ok)
	}
	if _, ok := AsFloat("200"); ok {
		t.Fatalf("strings are not numeric values")
	}
}
