package facematch

import "testing"

func TestNormalizeIdentityName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jan Novák", "jan novak"},
		{"jan-novak", "jan novak"},
		{"JIŘÍ", "jiri"},
		{"  Alice  ", "alice"},
		{"", ""},
		{"o'brien", "o'brien"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := NormalizeIdentityName(tc.input)
			if got != tc.want {
				t.Errorf("NormalizeIdentityName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRemoveDiacritics(t *testing.T) {
	if got := RemoveDiacritics("Žofie Čermáková"); got != "Zofie Cermakova" {
		t.Errorf("RemoveDiacritics() = %q, want %q", got, "Zofie Cermakova")
	}
}
