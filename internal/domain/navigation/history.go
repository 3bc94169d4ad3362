package navigation

// PushHistory returns history with id moved to the front, without duplicates,
// truncated to limit entries.
func PushHistory(history []string, id string, limit int) []string {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	out := make([]string, 0, limit)
	out = append(out, id)
	for _, existing := range history {
		if len(out) == limit {
			break
		}
		if existing == id || existing == "" {
			continue
		}
		out = append(out, existing)
	}
	return out
}
