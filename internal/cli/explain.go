package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ppiankov/venuescope/internal/explain"
	"github.com/ppiankov/venuescope/internal/model"
)

var (
	explainAbstract   string
	explainAbstractIn string
	explainVenue      explain.VenueContext
	explainVenueID    string
	explainUser       string
	explainTier       string
	explainJSON       bool
)

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain why a venue fits a manuscript",
	Long: `Explain returns a short explanation of the fit between a manuscript and a
venue. Explanations are cached per abstract and venue; a cache miss counts
against the user's daily quota.

Example:
  venuescope explain --abstract-file abstract.txt --venue-id S123 --venue-name "Child Development"`,
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	f := explainCmd.Flags()
	f.StringVar(&explainAbstract, "abstract", "", "manuscript abstract")
	f.StringVar(&explainAbstractIn, "abstract-file", "", "read the abstract from a file ('-' for stdin)")
	f.StringVar(&explainVenueID, "venue-id", "", "catalog venue ID")
	f.StringVar(&explainVenue.Name, "venue-name", "", "venue display name")
	f.StringVar(&explainVenue.Publisher, "publisher", "", "venue publisher")
	f.StringSliceVar(&explainVenue.Topics, "topic", nil, "venue topic (repeatable)")
	f.StringVar(&explainVenue.Category, "category", "", "venue category")
	f.StringVar(&explainVenue.MatchReason, "reason", "", "why the venue was suggested")
	f.BoolVar(&explainVenue.OpenAccess, "open-access", false, "venue is open access")
	f.StringVar(&explainUser, "user", "cli", "user the quota is charged to")
	f.StringVar(&explainTier, "tier", "", "quota tier (default: explain.default_tier)")
	f.BoolVar(&explainJSON, "json", false, "print the response as JSON")
	_ = explainCmd.MarkFlagRequired("venue-id")
	_ = explainCmd.MarkFlagRequired("venue-name")
}

func runExplain(cmd *cobra.Command, args []string) error {
	abstract, err := readAbstract(explainAbstract, explainAbstractIn)
	if err != nil {
		return err
	}
	if len([]rune(abstract)) < model.MinAbstractLength {
		return fmt.Errorf("%w: abstract must be at least %d characters", model.ErrInvalidQuery, model.MinAbstractLength)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAppFromViper(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	tier, _ := a.cfg.Explain.FindTier(explainTier)
	res, err := a.explain.GetOrCreate(ctx, explain.Request{
		Abstract: abstract,
		VenueID:  explainVenueID,
		Venue:    explainVenue,
		User:     model.User{ID: explainUser, Tier: tier},
	})
	if err != nil {
		return err
	}

	resp := model.ExplanationResponse{
		Explanation:    res.Explanation,
		IsAIGenerated:  res.IsAIGenerated,
		Cached:         res.Cached,
		RemainingToday: res.Remaining,
	}

	out := cmd.OutOrStdout()
	if explainJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal explanation: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	fmt.Fprintln(out, resp.Explanation)
	fmt.Fprintln(out)
	source := "template"
	if resp.IsAIGenerated {
		source = "generated"
	}
	if resp.Cached {
		source += ", cached"
	}
	remaining := "unlimited"
	if resp.RemainingToday != nil {
		remaining = fmt.Sprintf("%d", *resp.RemainingToday)
	}
	fmt.Fprintf(out, "(%s; remaining today: %s)\n", source, remaining)
	return nil
}
