package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/discoveryengine"
	"github.com/accesslint/platform/pkg/resultcache"
	"github.com/go-playground/validator/v10"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	discoverySessionID string
	discoveryMaxPages  int
	discoveryMaxDepth  int

	validate = validator.New()
)

// discoveryRequest is the flag-derived shape validated before a
// discovery is admitted, the same validator.New().Struct() pattern the
// teacher's api package runs on each inbound request body.
type discoveryRequest struct {
	HomepageURL string `validate:"required,url"`
	MaxPages    int    `validate:"min=1,max=1000"`
	MaxDepth    int    `validate:"min=1,max=20"`
}

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Request and inspect website discovery runs",
}

var discoveryCreateCmd = &cobra.Command{
	Use:   "create [homepage-url]",
	Short: "Run website discovery against a homepage and persist the discovered pages",
	Args:  cobra.ExactArgs(1),
	Run:   runDiscoveryCreate,
}

var discoveryShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a discovery's status and discovered pages",
	Args:  cobra.ExactArgs(1),
	Run:   runDiscoveryShow,
}

func init() {
	discoveryCreateCmd.Flags().StringVar(&discoverySessionID, "session-id", "", "Anonymous session identifying the requester, for monthly quota admission")
	discoveryCreateCmd.Flags().IntVar(&discoveryMaxPages, "max-pages", 100, "Maximum pages to discover")
	discoveryCreateCmd.Flags().IntVar(&discoveryMaxDepth, "max-depth", 3, "Maximum crawl depth")

	discoveryCmd.AddCommand(discoveryCreateCmd)
	discoveryCmd.AddCommand(discoveryShowCmd)
	rootCmd.AddCommand(discoveryCmd)
}

// buildDiscoveryEngine wires the Discovery Engine's collaborators: the
// db-backed monthly usage admission check and a result publisher
// backed by an in-process resultcache.MemoryCache (SPEC_FULL.md §4.10).
// Fetcher is deliberately left nil for the same reason
// buildCollaborators leaves Browser/Email/Store/Infer nil in
// cmd/worker.go: external.HTMLFetcher is a named-interface-only
// external, so operators inject a concrete fetcher (net/http-based,
// proxy-aware, whatever fits the deployment) by replacing this
// function.
func buildDiscoveryEngine(conn *db.DatabaseConnection) *discoveryengine.Engine {
	cache := resultcache.NewMemoryCache()
	return &discoveryengine.Engine{
		Usage:     &resultcache.UsageStoreAdapter{Conn: conn},
		Publisher: resultcache.NewPublisher(cache),
	}
}

func runDiscoveryCreate(cmd *cobra.Command, args []string) {
	conn := db.Connection()
	homepage := args[0]

	sessionID := discoverySessionID
	if sessionID == "" {
		sessionID = homepage
	}

	req := discoveryRequest{HomepageURL: homepage, MaxPages: discoveryMaxPages, MaxDepth: discoveryMaxDepth}
	if err := validate.Struct(req); err != nil {
		fmt.Printf("invalid discovery request: %v\n", err)
		os.Exit(1)
	}

	discovery := &db.Discovery{
		SessionID:   sessionID,
		HomepageURL: homepage,
		Mode:        db.DiscoveryModeAuto,
		Status:      db.DiscoveryStatusRunning,
		Phase:       db.DiscoveryPhaseSitemap,
		MaxPages:    discoveryMaxPages,
		MaxDepth:    discoveryMaxDepth,
	}
	if _, err := conn.CreateDiscovery(discovery); err != nil {
		fmt.Printf("failed to create discovery: %v\n", err)
		os.Exit(1)
	}

	engine := buildDiscoveryEngine(conn)
	result := engine.Run(context.Background(), sessionID, fmt.Sprintf("%d", discovery.ID), homepage, discoveryengine.Options{
		MaxPages: discoveryMaxPages,
		MaxDepth: discoveryMaxDepth,
	})

	for _, p := range result.Pages {
		if _, err := conn.AddDiscoveredPage(discovery.ID, db.DiscoveredPage{
			URL:    p.URL,
			Source: db.PageSource(p.Source),
			Depth:  p.Depth,
		}); err != nil {
			fmt.Printf("discovery %d: failed to persist page %s: %v\n", discovery.ID, p.URL, err)
		}
	}

	switch result.Status {
	case discoveryengine.StatusFailed:
		if err := conn.FailDiscovery(discovery.ID, string(result.ErrorCode), result.ErrorMessage); err != nil {
			fmt.Printf("discovery %d failed but failed to record it: %v\n", discovery.ID, err)
			os.Exit(1)
		}
		fmt.Printf("Discovery %d failed: %s\n", discovery.ID, result.ErrorMessage)
	case discoveryengine.StatusCancelled:
		if err := conn.UpdateDiscoveryPhase(discovery.ID, db.DiscoveryStatusCancelled, db.DiscoveryPhase(result.Phase)); err != nil {
			fmt.Printf("discovery %d cancelled but failed to record it: %v\n", discovery.ID, err)
			os.Exit(1)
		}
		fmt.Printf("Discovery %d cancelled after %d pages\n", discovery.ID, len(result.Pages))
	default:
		if err := conn.CompleteDiscovery(discovery.ID, result.PartialResults); err != nil {
			fmt.Printf("discovery %d completed but failed to record it: %v\n", discovery.ID, err)
			os.Exit(1)
		}
		fmt.Printf("Discovery %d completed: %d pages discovered (partial=%v)\n", discovery.ID, len(result.Pages), result.PartialResults)
	}
}

func runDiscoveryShow(cmd *cobra.Command, args []string) {
	conn := db.Connection()

	var id uint
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		fmt.Printf("invalid discovery id: %s\n", args[0])
		os.Exit(1)
	}

	discovery, err := conn.GetDiscoveryByID(id, true)
	if err != nil {
		fmt.Printf("discovery %d not found: %v\n", id, err)
		os.Exit(1)
	}

	fmt.Printf("Discovery %d: %s\nStatus: %s  Phase: %s\n", discovery.ID, discovery.HomepageURL, discovery.Status, discovery.Phase)
	if discovery.ErrorMessage != nil {
		fmt.Printf("Error: %s\n", *discovery.ErrorMessage)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"URL", "Source", "Depth", "HTTP Status"})
	for _, p := range discovery.Pages {
		status := ""
		if p.HTTPStatus != nil {
			status = fmt.Sprintf("%d", *p.HTTPStatus)
		}
		table.Append([]string{p.URL, string(p.Source), fmt.Sprintf("%d", p.Depth), status})
	}
	table.Render()
}
