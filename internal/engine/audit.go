package engine

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

// SortAudit returns the entries newest first. Entries with equal timestamps
// keep their append order reversed.
func SortAudit(entries []bracket.AuditEntry) []bracket.AuditEntry {
	out := slices.Clone(entries)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b bracket.AuditEntry) int {
		return b.At.Compare(a.At)
	})
	return out
}

// FormatAuditLine renders an entry as "time • actor • summary".
func FormatAuditLine(entry bracket.AuditEntry) string {
	actor := "system"
	if a := entry.Actor; a != nil {
		actor = cmp.Or(a.Name, a.ID, actor)
	}
	return fmt.Sprintf("%s • %s • %s", entry.At.UTC().Format(time.RFC3339), actor, entry.Summary)
}
