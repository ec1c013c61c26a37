package feed

import "strings"

// IsBlacklisted returns true if any blacklist entry appears
// (case-insensitive) in the company name.
//
// Applied before the pipeline runs: a blacklisted listing is dropped
// silently and is not counted by the pipeline's filter counter.
func IsBlacklisted(company string, blacklist []string) bool {
	if len(blacklist) == 0 {
		return false
	}
	name := strings.ToLower(strings.TrimSpace(company))
	if name == "" {
		return false
	}
	for _, entry := range blacklist {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.Contains(name, entry) {
			return true
		}
	}
	return false
}
