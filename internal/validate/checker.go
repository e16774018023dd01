// Package validate produces trust verdicts for venues by merging the flags of
// independent authority lists and heuristic checks.
package validate

import (
	"context"

	"github.com/ppiankov/venuescope/internal/model"
)

// Checker is one trust source. It returns zero or more flags for a venue, or
// an error when the source could not be consulted.
type Checker interface {
	Name() string
	Check(ctx context.Context, venue model.VenueCandidate) ([]model.Flag, error)
}

func flag(source, reason string, sev model.Severity) model.Flag {
	return model.Flag{Source: source, Reason: reason, Severity: sev}
}
