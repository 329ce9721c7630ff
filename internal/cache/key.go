package cache

import (
	"sort"
	"strings"
)

// Key renders the fingerprint (application, sorted_unique(profiles),
// resolved_label) as the string "{app}:{profile-csv}:{label}" used both as
// the cache's internal key and as the surface glob-invalidation matches
// against. Sorting and deduplicating profiles means [dev,local] and
// [local,dev] render identically, since precedence ordering lives in the
// request, not the cache key.
func Key(application string, profiles []string, label string) string {
	return application + ":" + profileCSV(profiles) + ":" + label
}

// globMatch reports whether s matches pattern, where '*' matches any run of
// characters (including none) and '?' matches exactly one character. Unlike
// path.Match, '*' here crosses '/' — the rendered key is a flat fingerprint
// string, not a filesystem path, and a label may itself legitimately
// contain '/' (e.g. "feature/x"), so pattern matching must not treat it as
// a path separator.
func globMatch(pattern, s string) bool {
	var pIdx, sIdx int
	var starIdx = -1
	var starMatch int

	for sIdx < len(s) {
		switch {
		case pIdx < len(pattern) && (pattern[pIdx] == '?' || pattern[pIdx] == s[sIdx]):
			pIdx++
			sIdx++
		case pIdx < len(pattern) && pattern[pIdx] == '*':
			starIdx = pIdx
			starMatch = sIdx
			pIdx++
		case starIdx != -1:
			pIdx = starIdx + 1
			starMatch++
			sIdx = starMatch
		default:
			return false
		}
	}

	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}
	return pIdx == len(pattern)
}

func profileCSV(profiles []string) string {
	if len(profiles) == 0 {
		return ""
	}
	sorted := make([]string, len(profiles))
	copy(sorted, profiles)
	sort.Strings(sorted)

	out := sorted[:0]
	var prev string
	for i, p := range sorted {
		if i == 0 || p != prev {
			out = append(out, p)
			prev = p
		}
	}
	return strings.Join(out, ",")
}
