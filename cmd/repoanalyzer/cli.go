package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/sattwyk/repoanalyzer/internal/analysis"
	"github.com/sattwyk/repoanalyzer/internal/analyzer"
	"github.com/sattwyk/repoanalyzer/internal/config"
	"github.com/sattwyk/repoanalyzer/internal/github"
	"github.com/sattwyk/repoanalyzer/internal/metrics"
	"github.com/sattwyk/repoanalyzer/internal/render"
	"github.com/sattwyk/repoanalyzer/internal/session"
	"github.com/sattwyk/repoanalyzer/internal/worker"
)

type analyzeOptions struct {
	format string
	search string
	filter string
	expand []string
	output string
	tokens bool
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <repository>",
		Short: "Analyze one repository and print a view of it",
		Long: `Analyze fetches the repository metadata, the default branch and the
recursive tree, then prints the requested view. The repository may be given
as owner/repo, github.com/owner/repo or any github.com URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}

	formats := make([]string, 0, len(render.Formats))
	for _, f := range render.Formats {
		formats = append(formats, string(f))
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", string(render.FormatTree), "view to print: "+strings.Join(formats, ", "))
	flags.StringVarP(&opts.search, "search", "s", "", "case-insensitive path substring for list views")
	flags.StringVar(&opts.filter, "filter", string(analysis.FilterAll), "list filter: all, files, folders, important")
	flags.StringSliceVar(&opts.expand, "expand", nil, "directories expanded in the outline view")
	flags.StringVarP(&opts.output, "output", "o", "", "destination URL (file path, file://, mem://, s3://, gs://); stdout when empty")
	flags.BoolVar(&opts.tokens, "tokens", false, "print a token estimate of the output to stderr")

	return cmd
}

func runAnalyze(ctx context.Context, stdout, stderr io.Writer, ref string, opts analyzeOptions) error {
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	mode, err := analysis.ParseFilterMode(opts.filter)
	if err != nil {
		return err
	}

	owner, repo, err := github.ParseRepositoryRef(ref)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m := metrics.NewWith(prometheus.NewRegistry())
	client, err := github.NewClient(cfg, m)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	a := analyzer.New(client, m)
	defer a.Close()

	result, err := a.Analyze(ctx, owner, repo)
	if err != nil {
		return err
	}

	state := session.NewState().WithSearch(opts.search).WithFilter(mode)
	for _, dir := range opts.expand {
		state = state.WithToggled(dir)
	}

	data, err := render.Render(format, render.NewReport(owner, repo, result), state.View())
	if err != nil {
		return err
	}

	if opts.tokens {
		n, err := render.CountTokens(cfg.TokenModel, string(data))
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "~%d tokens (%s)\n", n, cfg.TokenModel)
	}

	return writeOutput(ctx, stdout, opts.output, data)
}

// writeOutput writes data to stdout, or uploads it to dest through afs
func writeOutput(ctx context.Context, stdout io.Writer, dest string, data []byte) error {
	if dest == "" || dest == "-" {
		if len(data) > 0 && data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err := stdout.Write(data)
		return err
	}

	fs := afs.New()
	if err := fs.Upload(ctx, dest, 0o644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

func newBatchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "batch <repository>...",
		Short: "Analyze several repositories concurrently and print a summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), cmd.OutOrStdout(), args, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func runBatch(ctx context.Context, stdout io.Writer, refs []string, asJSON bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m := metrics.NewWith(prometheus.NewRegistry())
	client, err := github.NewClient(cfg, m)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pool := worker.NewPool(cfg, m, client)
	if err := pool.Start(ctx); err != nil {
		return err
	}
	defer pool.Stop()

	results, err := pool.AnalyzeBatch(ctx, refs)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		writeBatchTable(stdout, results)
	}

	failed := 0
	for _, r := range results {
		if r.State != analyzer.StateReady {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(results))
	}
	return nil
}

func writeBatchTable(w io.Writer, results []worker.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Repository", "State", "Files", "Folders", "Complexity", "Details"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, r := range results {
		if r.State != analyzer.StateReady {
			table.Append([]string{r.Ref, string(r.State), "-", "-", "-", r.Error})
			continue
		}
		table.Append([]string{
			r.Ref,
			string(r.State),
			strconv.Itoa(r.Files),
			strconv.Itoa(r.Folders),
			fmt.Sprintf("%d/100", r.Complexity),
			strings.Join(r.TechStack, ", "),
		})
	}

	table.Render()
}
