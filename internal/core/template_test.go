package core

import "testing"

func TestMatchTemplate(t *testing.T) {
	templates := []Template{
		{Description: "Netflix", Category: "Subscriptions"},
		{Description: "ATB Market", Category: "Food"},
	}

	cases := []struct {
		name        string
		description string
		category    string
		ok          bool
	}{
		{"exact match", "Netflix", "Subscriptions", true},
		{"second template", "ATB Market", "Food", true},
		{"case differs", "netflix", "", false},
		{"substring is not a match", "Netflix Premium", "", false},
		{"no templates hit", "Spotify", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MatchTemplate(tc.description, templates)
			if ok != tc.ok || got != tc.category {
				t.Fatalf("MatchTemplate(%q) = (%q, %v), want (%q, %v)",
					tc.description, got, ok, tc.category, tc.ok)
			}
		})
	}

	if _, ok := MatchTemplate("Netflix", nil); ok {
		t.Fatal("empty template set must never match")
	}
}
