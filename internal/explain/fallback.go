package explain

import (
	"fmt"
	"strings"
)

// Fallback builds a plain explanation from the venue context when no
// generator is configured. It is never cached and never charged.
func Fallback(v VenueContext) string {
	var b strings.Builder

	name := v.Name
	if name == "" {
		name = "This venue"
	}
	b.WriteString(name)
	if v.MatchReason != "" {
		fmt.Fprintf(&b, " was suggested because: %s.", strings.TrimSuffix(v.MatchReason, "."))
	} else {
		b.WriteString(" was suggested from its catalog metrics.")
	}

	if len(v.Topics) > 0 {
		topics := v.Topics
		if len(topics) > 3 {
			topics = topics[:3]
		}
		fmt.Fprintf(&b, " It publishes on %s.", strings.Join(topics, ", "))
	}
	if v.OpenAccess {
		b.WriteString(" It is open access.")
	}
	return b.String()
}
