package speech

// DistinctSpeakers drops the "undefined" and "null" placeholders and
// duplicates from labels. It returns nil when nothing is left.
func DistinctSpeakers(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	var out []string
	for _, l := range labels {
		if l == "" || l == "undefined" || l == "null" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
