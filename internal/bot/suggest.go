package bot

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how far a typo may be from a category before the
// hint becomes noise.
const maxSuggestDistance = 3

// nearestCategory finds the category closest to the typed text. It is only a
// hint for the user; matching rules elsewhere stay exact.
func nearestCategory(input string, categories []string) (string, bool) {
	input = strings.ToLower(input)

	best := ""
	bestDist := maxSuggestDistance + 1
	for _, c := range categories {
		d := levenshtein.ComputeDistance(input, strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
