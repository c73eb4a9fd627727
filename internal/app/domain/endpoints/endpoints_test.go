package endpoints

import "testing"

func TestDerive(t *testing.T) {
	cases := []struct {
		name  string
		input string
		base  string
	}{
		{"base with trailing slash", "https://collect.example/api/v1/", "https://collect.example/api/v1/"},
		{"base without trailing slash", "https://collect.example/api/v1", "https://collect.example/api/v1/"},
		{"keys endpoint", "https://collect.example/api/v1/keys", "https://collect.example/api/v1/"},
		{"observations endpoint", "https://collect.example/api/v1/observations", "https://collect.example/api/v1/"},
		{"forget-me endpoint", "https://collect.example/api/v1/forget-me-now", "https://collect.example/api/v1/"},
		{"query stripped", "https://collect.example/api/v1/keys?token=abc", "https://collect.example/api/v1/"},
		{"fragment stripped", "https://collect.example/api/v1/#section", "https://collect.example/api/v1/"},
		{"surrounding whitespace", "  https://collect.example/api/v1/  ", "https://collect.example/api/v1/"},
		{"host root", "http://localhost:3000", "http://localhost:3000/"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eps, err := Derive(tc.input)
			if err != nil {
				t.Fatalf("derive %q: %v", tc.input, err)
			}
			if eps.Base != tc.base {
				t.Fatalf("base = %q, want %q", eps.Base, tc.base)
			}
			if eps.Keys != tc.base+"keys" {
				t.Fatalf("keys = %q", eps.Keys)
			}
			if eps.Observations != tc.base+"observations" {
				t.Fatalf("observations = %q", eps.Observations)
			}
			if eps.ForgetMe != tc.base+"forget-me-now" {
				t.Fatalf("forget-me = %q", eps.ForgetMe)
			}
		})
	}
}

func TestDerive_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "not a url", "ftp://collect.example/api", "/relative/path", "https://"} {
		if _, err := Derive(input); err != ErrInvalidEndpoint {
			t.Fatalf("input %q: expected ErrInvalidEndpoint, got %v", input, err)
		}
	}
}
