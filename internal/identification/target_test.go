package identification

import "testing"

func TestCanonicalTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Vega", "vega"},
		{"  HD   209458  ", "hd 209458"},
		{"α Lyr", "alpha lyr"},
		{"β Ori", "beta ori"},
		{"π Men", "pi men"},
		{"Proxima Centauri", "proxima centauri"},
		{"Ĥ́D 1", "hd 1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CanonicalTarget(tt.in); got != tt.want {
			t.Errorf("CanonicalTarget(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalTargetIdempotent(t *testing.T) {
	once := CanonicalTarget("α CMa A")
	if twice := CanonicalTarget(once); twice != once {
		t.Fatalf("not idempotent: %q then %q", once, twice)
	}
}

func TestTargetFromPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/incoming/vega_calspec.fits", "vega calspec"},
		{"hd-209458.txt", "hd 209458"},
		{"..", "unknown target"},
	}
	for _, tt := range tests {
		if got := TargetFromPath(tt.in); got != tt.want {
			t.Errorf("TargetFromPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLibraryKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"α Lyr", "alpha-lyr"},
		{"HD 209458", "hd-209458"},
		{"G 191-B2B", "g-191b2b"},
		{"!!!", "unknown-target"},
	}
	for _, tt := range tests {
		if got := LibraryKey(tt.in); got != tt.want {
			t.Errorf("LibraryKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
