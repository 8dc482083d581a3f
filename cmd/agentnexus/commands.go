package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/tooldoc"
	"github.com/lcgani/agent-nexus/usage"
)

func newSetupCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the catalog collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			created, err := svc.Setup(cmd.Context())
			if err != nil {
				return err
			}
			isNew := map[string]bool{}
			for _, name := range created {
				isNew[name] = true
			}
			out := cmd.OutOrStdout()
			for _, name := range []string{model.CollectionDiscoveries, model.CollectionTools, model.CollectionUsageLogs} {
				if isNew[name] {
					fmt.Fprintf(out, "✓ Created collection: %s\n", name)
				} else {
					fmt.Fprintf(out, "✓ Collection already exists: %s\n", name)
				}
			}
			fmt.Fprintln(out, "\nSetup complete!")
			return nil
		},
	}
}

func newDiscoverCmd(opts *cliOptions) *cobra.Command {
	var skipIndex bool
	cmd := &cobra.Command{
		Use:   "discover <api-url>",
		Short: "Discover the endpoints and auth scheme of an API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.service(cmd.Context(), skipIndex)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := svc.Discover(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, rec)
			}
			fmt.Fprintf(out, "%s (%s)\n", rec.APIName, rec.Status)
			if rec.Status == model.StatusFailed {
				fmt.Fprintf(out, "Failed: %s\n", rec.ErrorMessage)
				return nil
			}
			fmt.Fprintf(out, "Base URL: %s\nAuth: %s\n", rec.BaseURL, rec.AuthType)
			if rec.HasOpenAPISpec {
				fmt.Fprintf(out, "Specification: %s\n", rec.OpenAPISpecURL)
			}
			rows := make([][]string, 0, len(rec.Endpoints))
			for _, ep := range rec.Endpoints {
				rows = append(rows, []string{ep.Method, ep.Path, truncate(ep.Summary, 60)})
			}
			writeTable(out, []string{"Method", "Path", "Summary"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "do not store the discovery")
	return cmd
}

func newGenerateCmd(opts *cliOptions) *cobra.Command {
	var (
		outputDir string
		skipIndex bool
	)
	cmd := &cobra.Command{
		Use:   "generate <api-url>",
		Short: "Discover an API and generate its tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.service(cmd.Context(), skipIndex)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			res, err := svc.Onboard(cmd.Context(), args[0])
			if errors.Is(err, tooldoc.ErrDiscoveryFailed) {
				fmt.Fprintf(out, "Failed: %s\n", res.Discovery.ErrorMessage)
				return err
			}
			if err != nil {
				return err
			}

			paths, err := tooldoc.WriteFiles(outputDir, res.Tool)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(out, map[string]any{
					"tool_id":   res.Tool.ToolID,
					"tool_name": res.Tool.ToolName,
					"created":   res.Created,
					"files":     paths,
				})
			}
			fmt.Fprintf(out, "✓ %s (%.1fs)\n", res.Tool.ToolName, res.Tool.GenerationTimeSeconds)
			for _, p := range paths {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "generated_tools", "directory for generated artifacts")
	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "do not write to the store")
	return cmd
}

func newSearchCmd(opts *cliOptions) *cobra.Command {
	var (
		topK    int
		keyword bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			if topK == 0 {
				topK = opts.cfg.Search.TopK
			}
			search := svc.Search
			if keyword {
				search = svc.SearchKeyword
			}
			results, err := search(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, results)
			}
			fmt.Fprintf(out, "Top %d results for %q:\n", len(results), args[0])
			rows := make([][]string, 0, len(results))
			for i, r := range results {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					r.Tool.DisplayName,
					fmt.Sprintf("%.2f", r.CompositeScore),
					strconv.Itoa(r.Tool.EndpointsCount),
					r.Tool.APIBaseURL,
					truncate(r.Tool.Description, 60),
				})
			}
			writeTable(out, []string{"#", "Tool", "Score", "Endpoints", "Base URL", "Description"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of results (default search.topK)")
	cmd.Flags().BoolVar(&keyword, "keyword", false, "rank by keyword relevance instead of embeddings")
	return cmd
}

func newPlanCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <request>",
		Short: "Recommend catalog tools for a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			plan, err := svc.Plan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}
}

func newUsageCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Record tool usage, ratings and verification",
	}

	var exec usage.Execution
	var latencyMs float64
	record := &cobra.Command{
		Use:   "record <tool-id>",
		Short: "Record one tool execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			exec.ToolID = args[0]
			exec.Latency = time.Duration(latencyMs * float64(time.Millisecond))
			entry, err := svc.Usage().Record(cmd.Context(), exec)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ logged %s for %s\n", entry.LogID, entry.ToolID)
			return nil
		},
	}
	record.Flags().BoolVar(&exec.Success, "success", false, "the execution succeeded")
	record.Flags().Float64Var(&latencyMs, "latency-ms", 0, "execution time in milliseconds")
	record.Flags().StringVar(&exec.UserQuery, "query", "", "request that led to the call")
	record.Flags().StringVar(&exec.Error, "error", "", "error text of a failed call")
	record.Flags().StringVar(&exec.AgentID, "agent", "", "calling agent id")

	rate := &cobra.Command{
		Use:   "rate <tool-id> <rating>",
		Short: "Rate a tool from 0 to 5",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: %s", usage.ErrInvalidRating, args[1])
			}
			svc, cleanup, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			mean, reviews, err := svc.Usage().Rate(cmd.Context(), args[0], rating)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s rated %.2f over %d reviews\n", args[0], mean, reviews)
			return nil
		},
	}

	var unverify bool
	verify := &cobra.Command{
		Use:   "verify <tool-id>",
		Short: "Mark a tool as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			return svc.Usage().Verify(cmd.Context(), args[0], !unverify)
		},
	}
	verify.Flags().BoolVar(&unverify, "unset", false, "clear the verification flag")

	cmd.AddCommand(record, rate, verify)
	return cmd
}
