package storage

import "testing"

func TestIsPostgres(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"postgres://habitual@localhost/habitual", true},
		{"postgresql://localhost/habitual", true},
		{"host=localhost dbname=habitual", true},
		{"/home/me/.config/habitual/habitual.db", false},
		{"~/habitual.db", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsPostgres(tt.target); got != tt.want {
			t.Errorf("IsPostgres(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}
