package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ppiankov/venuescope/internal/model"
)

var (
	verifyISSN      string
	verifyName      string
	verifyPublisher string
	verifyHomepage  string
	verifyJSON      bool
	verifyFresh     bool
)

// verifyReport is what verify prints
type verifyReport struct {
	Venue   model.VenueCandidate      `json:"venue"`
	Verdict model.VerificationVerdict `json:"verdict"`
	State   model.CheckState          `json:"state"`
	Sources []string                  `json:"sources_configured"`
}

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Screen a single journal against the trust sources",
	Long: `Verify looks the journal up in the OpenAlex catalog by ISSN and runs every
configured trust source against it. Journals missing from the catalog are
screened from the flags alone.

Example:
  venuescope verify --issn 0009-3920
  venuescope verify --name "Global Journal of Everything" --homepage https://gje.xyz
  venuescope verify --issn 0009-3920 --fresh --json`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyISSN, "issn", "", "journal ISSN")
	verifyCmd.Flags().StringVar(&verifyName, "name", "", "journal name")
	verifyCmd.Flags().StringVar(&verifyPublisher, "publisher", "", "journal publisher")
	verifyCmd.Flags().StringVar(&verifyHomepage, "homepage", "", "journal homepage URL")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the verdict as JSON")
	verifyCmd.Flags().BoolVar(&verifyFresh, "fresh", false, "ignore cached verdicts and query every source again")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(verifyISSN) == "" && strings.TrimSpace(verifyName) == "" {
		return fmt.Errorf("%w: --issn or --name is required", model.ErrInvalidQuery)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAppFromViper(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	venue := venueFromFlags()
	if verifyISSN != "" {
		found, ok, err := a.openalex.LookupISSN(ctx, verifyISSN)
		switch {
		case err != nil:
			a.logger.Warn().Err(err).Str("issn", verifyISSN).Msg("catalog lookup failed, screening from flags")
		case ok:
			venue = mergeVenue(found, venue)
		}
	}

	report := a.verifyVenue(ctx, venue, verifyFresh)

	out := cmd.OutOrStdout()
	if verifyJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal verdict: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	renderVerdict(out, report)
	return nil
}

// verifyVenue screens one venue. fresh skips cached verdicts.
func (a *app) verifyVenue(ctx context.Context, venue model.VenueCandidate, fresh bool) verifyReport {
	var verdict model.VerificationVerdict
	if fresh {
		verdict = a.verifier.Recheck(ctx, []model.VenueCandidate{venue})[0]
	} else {
		verdict = a.verifier.Verify(ctx, venue)
	}
	return verifyReport{
		Venue:   venue,
		Verdict: verdict,
		State:   a.verifier.State(venue.ID),
		Sources: a.verifier.Sources(),
	}
}

func venueFromFlags() model.VenueCandidate {
	issn := strings.ToUpper(strings.TrimSpace(verifyISSN))
	v := model.VenueCandidate{
		ID:          issn,
		Name:        strings.TrimSpace(verifyName),
		Publisher:   strings.TrimSpace(verifyPublisher),
		HomepageURL: strings.TrimSpace(verifyHomepage),
		ISSNL:       issn,
	}
	if issn != "" {
		v.ISSN = []string{issn}
	}
	if v.ID == "" {
		v.ID = "name:" + strings.ToLower(v.Name)
	}
	return v
}

// mergeVenue fills catalog fields the user left blank
func mergeVenue(catalog, flags model.VenueCandidate) model.VenueCandidate {
	if flags.Name != "" {
		catalog.Name = flags.Name
	}
	if flags.Publisher != "" {
		catalog.Publisher = flags.Publisher
	}
	if flags.HomepageURL != "" {
		catalog.HomepageURL = flags.HomepageURL
	}
	return catalog
}

func renderVerdict(w io.Writer, report verifyReport) {
	venue, verdict := report.Venue, report.Verdict
	name := venue.Name
	if name == "" {
		name = venue.ID
	}
	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  Badge:    %s (%s)\n", verdict.Badge, verdict.StatusText)
	if verdict.Subtitle != "" {
		fmt.Fprintf(w, "  Note:     %s\n", verdict.Subtitle)
	}
	if verdict.VerifiedBy != "" {
		fmt.Fprintf(w, "  Verified: %s\n", verdict.VerifiedBy)
	}
	for _, f := range verdict.Flags {
		fmt.Fprintf(w, "  ! [%s] %s: %s\n", f.Severity, f.Source, f.Reason)
	}
	if len(verdict.SourcesChecked) == 0 {
		fmt.Fprintf(w, "  Sources:  none responded of %d configured\n", len(report.Sources))
	} else {
		fmt.Fprintf(w, "  Sources:  %s (%d of %d)\n", strings.Join(verdict.SourcesChecked, ", "), len(verdict.SourcesChecked), len(report.Sources))
	}
	if report.State != "" {
		fmt.Fprintf(w, "  State:    %s\n", report.State)
	}
}
