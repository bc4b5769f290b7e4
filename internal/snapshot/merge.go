package snapshot

// Merge returns the emails of list whose ids are not in deletedIDs,
// preserving list order. The input slice is not modified.
func Merge(list []CategorizedEmail, deletedIDs []string) []CategorizedEmail {
	if len(deletedIDs) == 0 {
		return append([]CategorizedEmail(nil), list...)
	}

	deleted := make(map[string]bool, len(deletedIDs))
	for _, id := range deletedIDs {
		deleted[id] = true
	}

	remaining := make([]CategorizedEmail, 0, len(list))
	for _, e := range list {
		if !deleted[e.ID] {
			remaining = append(remaining, e)
		}
	}
	return remaining
}
