package util

import "testing"

func TestToE164(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		cc   string
		want string
	}{
		{"empty", "", "244", ""},
		{"whitespace only", "   ", "244", ""},
		{"bare plus", "+", "244", ""},
		{"punctuation only", "()-", "244", ""},
		{"already e164", "+244923456789", "244", "+244923456789"},
		{"local number gets cc", "923456789", "244", "+244923456789"},
		{"spaces stripped", "923 456 789", "244", "+244923456789"},
		{"punctuation stripped", "(923) 456-789", "244", "+244923456789"},
		{"cc present without plus", "244923456789", "244", "+244923456789"},
		{"plus with spaces", "+244 923 456 789", "244", "+244923456789"},
		{"foreign number kept verbatim", "+5511987654321", "244", "+5511987654321"},
		{"cc with plus prefix accepted", "923456789", "+244", "+244923456789"},
		{"no default cc", "923456789", "", "+923456789"},
		{"interior plus dropped", "923+456", "244", "+244923456"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ToE164(tc.raw, tc.cc); got != tc.want {
				t.Fatalf("ToE164(%q, %q) = %q, want %q", tc.raw, tc.cc, got, tc.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ana@Example.COM "); got != "ana@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "ana.silva@example.com", " UPPER@EXAMPLE.COM "}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = false, want true", email)
		}
	}
	invalid := []string{"", "noat", "@example.com", "a@b", "a@@b.com", "a@.c"}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = true, want false", email)
		}
	}
}
