package core

// MatchTemplate finds the category for a transaction description among the
// user's saved templates. Matching is exact and case-sensitive on the full
// description. No fuzzy or substring matching: descriptions from the bank
// are stable strings, and a looser match would silently miscategorize.
func MatchTemplate(description string, templates []Template) (string, bool) {
	for _, t := range templates {
		if t.Description == description {
			return t.Category, true
		}
	}
	return "", false
}
