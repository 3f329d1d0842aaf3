package reset

import (
	"fmt"
	"strings"
)

// Render produces the after-action report for an outcome. The text is a
// pure function of its inputs; zero-count sections still print their header.
func Render(out Outcome, idpRealm string, applicationRealm string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deleted %d users in realm %s:\n", len(out.DeletedUsers), idpRealm)
	for _, username := range out.DeletedUsers {
		fmt.Fprintln(&b, username)
	}
	fmt.Fprintf(&b, "\nDeleted %d federated links from %s to %s:\n", len(out.RemovedLinks), applicationRealm, idpRealm)
	for _, link := range out.RemovedLinks {
		fmt.Fprintf(&b, "%s %s\n", link.Username, link.Provider)
	}
	return b.String()
}
