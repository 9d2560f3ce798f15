package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"community-overlap/internal/collector"
	"community-overlap/internal/config"
	"community-overlap/internal/domain"
	apperrors "community-overlap/internal/errors"
	"community-overlap/internal/outreach"
	"community-overlap/internal/overlap"
	"community-overlap/internal/reddit"
	"community-overlap/internal/storage"
	"community-overlap/internal/storage/postgres"
	"community-overlap/internal/storage/sqlite"
)

var (
	outputJSON   bool
	postLimit    int
	commentLimit int
	batchSize    int
	useCache     bool
	msgSubject   string
	msgBody      string
	msgBodyFile  string
	assumeYes    bool
	pruneDays    int
)

var rootCmd = &cobra.Command{
	Use:   "community-overlap",
	Short: "Community participant overlap tool",
	Long: `A CLI tool for discovering the active participants of two Reddit
communities, computing the overlap between them, and optionally messaging
the overlapping participants under anti-abuse pacing.

Collection runs in resumable batches: each batch index samples the community
under a different content ranking, so successive batches surface different
participant subsets.`,
}

var compareCmd = &cobra.Command{
	Use:   "compare [communityA] [communityB]",
	Short: "Compare the first batch of two communities",
	Long:  `Collect the first batch of participants from each community and compute their overlap.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

var nextCmd = &cobra.Command{
	Use:   "next [communityA] [communityB]",
	Short: "Compare the next batch of two communities",
	Long: `Find the highest stored batch index per community and collect the next
batch of each before computing their overlap.`,
	Args: cobra.ExactArgs(2),
	RunE: runNext,
}

var compareAllCmd = &cobra.Command{
	Use:   "compare-all [communityA] [communityB]",
	Short: "Compare all stored batches of two communities",
	Long: `Merge every stored batch per community and compute the overlap of the
merged participant sets. No new collection is triggered.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompareAll,
}

var messageCmd = &cobra.Command{
	Use:   "message [communityA] [communityB]",
	Short: "Message the most recent overlap set",
	Long: `Send a direct message to every participant in the most recent stored
overlap result for the community pair, under the configured pacing policy.`,
	Args: cobra.ExactArgs(2),
	RunE: runMessage,
}

var statsCmd = &cobra.Command{
	Use:   "stats [community]",
	Short: "Show stored collection state for a community",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored batches older than a retention window",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	for _, cmd := range []*cobra.Command{compareCmd, nextCmd} {
		cmd.Flags().IntVar(&postLimit, "posts", 0, "max posts to scan per community (default from config)")
		cmd.Flags().IntVar(&commentLimit, "comments", 0, "max comments to scan per post (default from config)")
		cmd.Flags().IntVar(&batchSize, "batch-size", 0, "max participants to collect per batch (default from config)")
		cmd.Flags().BoolVar(&useCache, "use-cache", false, "reuse stored batches when available")
	}

	messageCmd.Flags().StringVar(&msgSubject, "subject", "", "message subject (required)")
	messageCmd.Flags().StringVar(&msgBody, "body", "", "message body")
	messageCmd.Flags().StringVar(&msgBodyFile, "body-file", "", "file containing the message body")
	messageCmd.Flags().BoolVar(&assumeYes, "yes", false, "skip the confirmation prompt")

	pruneCmd.Flags().IntVar(&pruneDays, "older-than", 90, "delete batches older than this many days")

	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(compareAllCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pruneCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStore(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStore(cfg.SQLitePath)
	}
}

func newSession(cfg *config.Config) (*reddit.Session, error) {
	return reddit.NewSession(reddit.Credentials{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		UserAgent:    cfg.RedditUserAgent,
		Username:     cfg.RedditUsername,
		Password:     cfg.RedditPassword,
	})
}

func compareOptions(cfg *config.Config, startA, startB int) overlap.CompareOptions {
	opts := overlap.CompareOptions{
		StartBatchA:     startA,
		StartBatchB:     startB,
		PostLimit:       cfg.PostLimit,
		CommentLimit:    cfg.CommentLimit,
		TargetBatchSize: cfg.BatchSize,
		UseCache:        useCache,
	}
	if postLimit > 0 {
		opts.PostLimit = postLimit
	}
	if commentLimit > 0 {
		opts.CommentLimit = commentLimit
	}
	if batchSize > 0 {
		opts.TargetBatchSize = batchSize
	}
	return opts
}

func runCompare(cmd *cobra.Command, args []string) error {
	return compareBatches(args[0], args[1], 0, 0)
}

func runNext(cmd *cobra.Command, args []string) error {
	communityA, communityB := args[0], args[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	store, err := getStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx := context.Background()
	maxA, err := store.MaxBatchIndex(ctx, communityA)
	if err != nil {
		store.Close()
		return err
	}
	maxB, err := store.MaxBatchIndex(ctx, communityB)
	if err != nil {
		store.Close()
		return err
	}
	store.Close()

	fmt.Printf("Found existing batches: %s (batch %d), %s (batch %d)\n", communityA, maxA, communityB, maxB)
	return compareBatches(communityA, communityB, maxA, maxB)
}

func compareBatches(communityA, communityB string, startA, startB int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store, err := getStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	session, err := newSession(cfg)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	engine := overlap.NewEngine(store, collector.New(session))
	result, err := engine.CompareBatch(context.Background(), communityA, communityB, compareOptions(cfg, startA, startB))
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	printResult(result)
	return nil
}

func runCompareAll(cmd *cobra.Command, args []string) error {
	communityA, communityB := args[0], args[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := getStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	// CompareAll never touches the network, so no session is needed.
	engine := overlap.NewEngine(store, nil)
	result, err := engine.CompareAll(context.Background(), communityA, communityB)
	if err != nil {
		if apperrors.IsPrecondition(err) {
			return fmt.Errorf("%w\nRun 'compare' or 'next' first to collect some data", err)
		}
		return fmt.Errorf("comparison failed: %w", err)
	}

	printResult(result)
	return nil
}

func runMessage(cmd *cobra.Command, args []string) error {
	communityA, communityB := args[0], args[1]

	if msgSubject == "" {
		return fmt.Errorf("--subject is required")
	}
	body := msgBody
	if msgBodyFile != "" {
		raw, err := os.ReadFile(msgBodyFile)
		if err != nil {
			return fmt.Errorf("reading body file: %w", err)
		}
		body = string(raw)
	}
	if body == "" {
		return fmt.Errorf("--body or --body-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.ValidateForMessaging(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store, err := getStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	result, err := store.LatestOverlap(ctx, communityA, communityB)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return fmt.Errorf("no stored overlap for %s vs %s; run 'compare' first", communityA, communityB)
		}
		return err
	}

	recipients := domain.FilterBots(result.Overlapping)
	if len(recipients) == 0 {
		return fmt.Errorf("the stored overlap for %s vs %s has no messageable participants", communityA, communityB)
	}
	fmt.Printf("Most recent overlap for %s vs %s: %d participants (computed %s)\n",
		result.CommunityA, result.CommunityB, len(recipients), result.CreatedAt.Format("2006-01-02 15:04"))

	// Surface the previous run so a crashed delivery is visible before a new
	// one starts; runs are never resumed automatically.
	if prev, err := store.LatestOutreachRun(ctx); err == nil && prev.State != domain.OutreachDone {
		fmt.Printf("Note: previous outreach run %s stopped at %d/%d (%d sent, %d failed)\n",
			prev.ID, prev.Processed, prev.Total, len(prev.Succeeded), len(prev.Failed))
	}

	session, err := newSession(cfg)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	policy := domain.OutreachPolicy{
		MinDelaySec:   cfg.MinDelaySec,
		MaxDelaySec:   cfg.MaxDelaySec,
		DailyCap:      cfg.DailyCap,
		BatchSize:     cfg.SendBatchSize,
		BatchRestMin:  cfg.BatchRestMin,
		NaturalPacing: cfg.NaturalPacing,
	}

	scheduler := outreach.NewScheduler(session, store, policy)
	scheduler.Confirm = func(run *domain.OutreachRun) bool {
		if assumeYes {
			return true
		}
		fmt.Printf("Send %q to %d recipients? (y/n): ", msgSubject, run.Total)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		return strings.TrimSpace(strings.ToLower(answer)) == "y"
	}

	run, err := scheduler.Run(ctx, recipients, msgSubject, body)
	if run != nil {
		printOutreachRun(run)
	}
	return err
}

func runStats(cmd *cobra.Command, args []string) error {
	community := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := getStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	count, err := store.CountBatches(ctx, community)
	if err != nil {
		return err
	}
	maxIndex, err := store.MaxBatchIndex(ctx, community)
	if err != nil {
		return err
	}
	participants, err := store.LoadAllParticipants(ctx, community)
	if err != nil {
		return err
	}

	if outputJSON {
		out, _ := json.Marshal(map[string]interface{}{
			"community":         community,
			"batches":           count,
			"max_batch_index":   maxIndex,
			"participant_count": len(participants),
		})
		fmt.Println(string(out))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Community", "Batches", "Max Batch", "Participants"})
	table.Append([]string{community, fmt.Sprintf("%d", count), fmt.Sprintf("%d", maxIndex), fmt.Sprintf("%d", len(participants))})
	table.Render()
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := getStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	cutoff := time.Now().AddDate(0, 0, -pruneDays)
	deleted, err := store.PruneBatches(context.Background(), cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d batches older than %s\n", deleted, cutoff.Format("2006-01-02"))
	return nil
}

func printResult(result *domain.OverlapResult) {
	if outputJSON {
		out, _ := json.Marshal(result)
		fmt.Println(string(out))
		return
	}

	fmt.Println()
	if result.BatchA != nil && result.BatchB != nil {
		fmt.Printf("Overlap: %s (batch %d) vs %s (batch %d)\n", result.CommunityA, *result.BatchA, result.CommunityB, *result.BatchB)
	} else {
		fmt.Printf("Overlap: %s vs %s (all batches)\n", result.CommunityA, result.CommunityB)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Participants in " + result.CommunityA, fmt.Sprintf("%d", result.CountA)})
	table.Append([]string{"Participants in " + result.CommunityB, fmt.Sprintf("%d", result.CountB)})
	table.Append([]string{"Overlapping participants", fmt.Sprintf("%d", result.OverlapCount)})
	table.Append([]string{"% of " + result.CommunityA + " also in " + result.CommunityB, fmt.Sprintf("%.2f%%", result.OverlapPercentA)})
	table.Append([]string{"% of " + result.CommunityB + " also in " + result.CommunityA, fmt.Sprintf("%.2f%%", result.OverlapPercentB)})
	table.Render()

	if result.BatchA != nil {
		fmt.Printf("\nMore participants available to scan: %s: %v, %s: %v\n",
			result.CommunityA, result.MoreAvailableA, result.CommunityB, result.MoreAvailableB)
	}

	if result.OverlapCount > 0 {
		fmt.Println("\nTop overlapping participants:")
		preview := result.Overlapping
		if len(preview) > 100 {
			preview = preview[:100]
		}
		for i, u := range preview {
			fmt.Printf("%d. %s\n", i+1, u)
		}
		if result.OverlapCount > 100 {
			fmt.Printf("... and %d more\n", result.OverlapCount-100)
		}
	}
}

func printOutreachRun(run *domain.OutreachRun) {
	if outputJSON {
		out, _ := json.Marshal(run)
		fmt.Println(string(out))
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run", "Total", "Processed", "Sent", "Failed", "State"})
	table.Append([]string{
		run.ID,
		fmt.Sprintf("%d", run.Total),
		fmt.Sprintf("%d", run.Processed),
		fmt.Sprintf("%d", len(run.Succeeded)),
		fmt.Sprintf("%d", len(run.Failed)),
		string(run.State),
	})
	table.Render()

	if len(run.Failed) > 0 {
		fmt.Println("\nFailed recipients:")
		for _, u := range run.Failed {
			fmt.Printf("- %s\n", u)
		}
	}
}
