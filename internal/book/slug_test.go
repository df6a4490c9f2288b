package book

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Systems Field Guide", "systems-field-guide"},
		{"Déjà Vu — Édition 2", "deja-vu-edition-2"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"already-slugged", "already-slugged"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
