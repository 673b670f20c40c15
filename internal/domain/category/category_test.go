package category

import "testing"

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Kasir":                "kasir",
		"Supervisor Toko":      "supervisor-toko",
		"Driver/Pengantar":     "driver-pengantar",
		"  Cleaning  Service ": "cleaning-service",
		"Admin Gudang!":        "admin-gudang",
	}

	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultsHaveUniqueSlugs(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Defaults {
		slug := Slugify(s.Name)
		if seen[slug] {
			t.Fatalf("duplicate slug %q", slug)
		}
		seen[slug] = true
	}
	if len(seen) != 7 {
		t.Fatalf("expected 7 default categories, got %d", len(seen))
	}
}
