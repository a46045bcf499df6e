// internal/routing/routing_test.go
//
// Unit-tests for the bypass matcher and render-path helpers.

package routing

import "testing"

func TestBypass(t *testing.T) {
	m := NewMatcher(nil)
	cases := map[string]bool{
		"/":                    false,
		"/thank-you":           false,
		"/dashboard/forms":     false,
		"/api/forms/submit":    true,
		"/api":                 true,
		"/apiary":              false,
		"/_next/static/app.js": true,
		"/_static/logo":        true,
		"/favicon.ico":         true,
		"/img/hero.webp":       true,
		"/v1.2/":               false,
		"/.well-known":         false,
		"/trailing.":           false,
	}
	for path, want := range cases {
		if got := m.Bypass(path); got != want {
			t.Errorf("Bypass(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestBypass_CustomPrefixes(t *testing.T) {
	m := NewMatcher([]string{"/assets/"})
	if m.Bypass("/api/forms") {
		t.Fatalf("default prefixes must not apply when custom ones are set")
	}
	if !m.Bypass("/assets/x") {
		t.Fatalf("custom prefix not honoured")
	}
}

func TestValidSlug(t *testing.T) {
	cases := map[string]bool{
		"spring-sale": true,
		"a":           true,
		"2025-launch": true,
		"":            false,
		"-lead":       false,
		"trail-":      false,
		"dou--ble":    false,
		"Upper":       false,
		"with space":  false,
		"../etc":      false,
	}
	for in, want := range cases {
		if got := ValidSlug(in); got != want {
			t.Errorf("ValidSlug(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildPath(t *testing.T) {
	cases := []struct{ prefix, slug, want string }{
		{"/p", "spring-sale", "/p/spring-sale"},
		{"p/", "/spring-sale/", "/p/spring-sale"},
		{"", "spring-sale", "/spring-sale"},
		{"/p", "", "/p"},
		{"", "", "/"},
	}
	for _, tc := range cases {
		if got := BuildPath(tc.prefix, tc.slug); got != tc.want {
			t.Errorf("BuildPath(%q, %q) = %q, want %q", tc.prefix, tc.slug, got, tc.want)
		}
	}
}
