package handlers

import (
	"strings"
	"testing"
)

func TestValidateDisease(t *testing.T) {
	cases := []struct {
		name    string
		disease string
		wantErr bool
	}{
		{"too short", "fl", true},
		{"minimum", "flu", false},
		{"normal", "persistent migraine", false},
		{"maximum", strings.Repeat("a", 100), false},
		{"over maximum", strings.Repeat("a", 101), true},
		{"whitespace only", "   ", true},
		{"padded to minimum", " flu ", false},
	}
	for _, tc := range cases {
		err := validateDisease(tc.disease)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: validateDisease(%q) err=%v, wantErr=%v", tc.name, tc.disease, err, tc.wantErr)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@example.org"}
	invalid := []string{"", "nope", "a@b", "a b@c.d", "@x.y"}
	for _, e := range valid {
		if err := validateEmail(e); err != nil {
			t.Errorf("validateEmail(%q) unexpected error: %v", e, err)
		}
	}
	for _, e := range invalid {
		if err := validateEmail(e); err == nil {
			t.Errorf("validateEmail(%q) expected error", e)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	if err := validatePhone(""); err != nil {
		t.Errorf("empty phone should be allowed: %v", err)
	}
	if err := validatePhone("+8801712345678"); err != nil {
		t.Errorf("valid phone rejected: %v", err)
	}
	if err := validatePhone("12ab34"); err == nil {
		t.Error("letters in phone should be rejected")
	}
	if err := validatePhone("123"); err == nil {
		t.Error("too-short phone should be rejected")
	}
}

func TestValidateGender(t *testing.T) {
	for _, g := range []string{"", "male", "Female", "OTHER"} {
		if err := validateGender(g); err != nil {
			t.Errorf("validateGender(%q) unexpected error: %v", g, err)
		}
	}
	if err := validateGender("robot"); err == nil {
		t.Error("unknown gender should be rejected")
	}
}
