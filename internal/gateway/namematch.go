package gateway

import "strings"

// MinNameSimilarity is the threshold below which a resolved bank account
// name is rejected as not belonging to the profile holder.
const MinNameSimilarity = 0.6

// NameSimilarity scores how well two personal names match, in [0,1].
// Names are compared as unordered word sets so "ADA OBI" matches
// "Obi Ada"; a word also counts when one side is a prefix of the other,
// covering initials and truncated bank records.
func NameSimilarity(a, b string) float64 {
	aw := nameWords(a)
	bw := nameWords(b)
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	matched := 0
	used := make([]bool, len(bw))
	for _, w := range aw {
		for i, v := range bw {
			if used[i] {
				continue
			}
			if w == v || strings.HasPrefix(v, w) || strings.HasPrefix(w, v) {
				used[i] = true
				matched++
				break
			}
		}
	}
	denom := len(aw)
	if len(bw) > denom {
		denom = len(bw)
	}
	return float64(matched) / float64(denom)
}

// NameMatches applies the minimum similarity threshold.
func NameMatches(accountName, profileName string) bool {
	return NameSimilarity(accountName, profileName) >= MinNameSimilarity
}

func nameWords(s string) []string {
	fields := strings.Fields(strings.ToUpper(s))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,-")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
