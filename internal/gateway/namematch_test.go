package gateway

import "testing"

func TestNameSimilarity(t *testing.T) {
	cases := []struct {
		a, b  string
		match bool
	}{
		{"ADAEZE OBI", "Adaeze Obi", true},
		{"OBI ADAEZE", "Adaeze Obi", true},          // order-insensitive
		{"ADAEZE C OBI", "Adaeze Obi", true},        // extra middle initial
		{"A OBI", "Adaeze Obi", true},               // initial prefix
		{"CHUKWU EMEKA", "Adaeze Obi", false},
		{"", "Adaeze Obi", false},
		{"ADAEZE", "Adaeze Obi", false},             // half a name is not enough
	}
	for _, c := range cases {
		if got := NameMatches(c.a, c.b); got != c.match {
			t.Fatalf("NameMatches(%q, %q) = %v (score %.2f), want %v",
				c.a, c.b, got, NameSimilarity(c.a, c.b), c.match)
		}
	}
}
