package cmd

import "testing"

func TestNameFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"john-smith.jpg", "john smith"},
		{"john-smith_2.jpg", "john smith"},
		{"John_Smith.jpg", "john smith"},
		{"Renée.png", "renee"},
		{"alice_10.jpeg", "alice"},
		{"alice_b.jpg", "alice b"},
	}

	for _, tc := range tests {
		if got := nameFromFilename(tc.filename); got != tc.want {
			t.Errorf("nameFromFilename(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}
