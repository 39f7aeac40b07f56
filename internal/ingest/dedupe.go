// Package ingest drives per-brand ad collection: pagination over the ad
// archive client, inline normalization, and fragment-level dedup.
package ingest

import (
	"strings"

	"golang.org/x/text/cases"
)

// FragmentKey returns the canonical form used for duplicate detection:
// case-folded with runs of whitespace collapsed to a single space.
func FragmentKey(s string) string {
	folded := cases.Fold().String(s)
	return strings.Join(strings.Fields(folded), " ")
}

// Deduplicate removes later duplicates from fragments, keeping the first
// occurrence of each distinct fragment in original order. Empty and
// whitespace-only fragments are dropped before comparison. The second
// return reports whether any duplicate was seen.
func Deduplicate(fragments []string) ([]string, bool) {
	seen := make(map[string]struct{}, len(fragments))
	unique := make([]string, 0, len(fragments))
	hadDuplicate := false

	for _, f := range fragments {
		key := FragmentKey(f)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			hadDuplicate = true
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, f)
	}

	return unique, hadDuplicate
}
