package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/coursecrawl/internal/config"
	"github.com/nao1215/coursecrawl/internal/database"
	"github.com/nao1215/coursecrawl/internal/fetch"
	"github.com/nao1215/coursecrawl/internal/log"
	"github.com/nao1215/coursecrawl/internal/model"
	"github.com/nao1215/coursecrawl/internal/pipeline"
	"github.com/nao1215/coursecrawl/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [root-url...]",
		Short: "Discover course page URLs of one or more catalogs",
		Long: `Crawl walks course catalogs breadth-first and collects the URLs of their pages.

Pages are fetched over plain HTTP with retries. A page that keeps answering
with rate limits, cannot be reached or shows an anti-bot challenge is
rendered in a headless Chromium instead. Modern Campus catalogs are detected
from the root page and crawled with platform-specific link rules.

Discovered URLs are re-checked for reachability and stored in the local
database. Later runs reuse stored URLs unless --refresh is given.

Examples:
  # Crawl an ad-hoc catalog root
  coursecrawl crawl https://bulletin.brown.edu/

  # Crawl every source of the sources file
  coursecrawl crawl

  # Crawl selected sources and write a Markdown report
  coursecrawl crawl --source brown --source yale --markdown -o report.md

  # Static fetches only, through a SOCKS5 proxy
  coursecrawl crawl --no-render --proxy 127.0.0.1:1080 https://catalog.example.edu/

Sources file (.coursecrawl.yaml) example:
  defaults:
    crawl_depth: 3
  sources:
    - name: brown
      root_url: "https://bulletin.brown.edu/"
    - name: example
      root_url: "https://catalog.example.edu/courses/"
      cookie: "session_id=abc123"
      exclude_patterns:
        - "/archive/"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum crawl depth below the root for ad-hoc roots")
	cmd.Flags().DurationP("timeout", "t", config.DefaultPageTimeout,
		"Timeout of one static fetch attempt for ad-hoc roots")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pages fetched at once for ad-hoc roots")
	cmd.Flags().StringSliceP("exclude", "x", nil,
		"Extra regular expression of URLs never to crawl (repeatable)")
	cmd.Flags().String("base-exclude", "",
		"URL whose host and path prefix bound the crawl of ad-hoc roots")
	cmd.Flags().Bool("include-external", false,
		"Follow links outside the crawl scope")
	cmd.Flags().Int("max-links", 0,
		"Maximum links followed from one page (0 is unlimited)")

	// Rendering flags
	cmd.Flags().Bool("no-render", false,
		"Never escalate to browser rendering")
	cmd.Flags().Duration("render-timeout", config.DefaultRenderTimeout,
		"Timeout of one browser render")
	cmd.Flags().String("browser-bin", "",
		"Chromium executable (default: located or downloaded automatically)")
	cmd.Flags().Int("scroll-steps", config.DefaultScrollSteps,
		"Viewport scrolls per rendered page")
	cmd.Flags().Bool("no-sandbox", false,
		"Disable the Chromium sandbox (needed as root in containers)")

	// Network flags
	cmd.Flags().String("proxy", "",
		"Route static fetches through a SOCKS5 proxy (host:port)")
	cmd.Flags().String("user-agent", "",
		"User-Agent of static fetches (default: desktop Chrome)")

	// Pipeline flags
	cmd.Flags().Bool("no-prefilter", false,
		"Keep discovered URLs without re-checking them")
	cmd.Flags().BoolP("refresh", "r", false,
		"Ignore stored URLs and crawl again")
	cmd.Flags().Bool("no-store", false,
		"Do not read or write the URL database")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sources crawled at once")

	// Source selection
	cmd.Flags().StringSliceP("source", "s", nil,
		"Crawl only the named source of the sources file (repeatable)")
	cmd.Flags().StringP("config", "c", "",
		"Sources file path (default: .coursecrawl.yaml in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().BoolP("urls", "u", false,
		"List every discovered URL in the report")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.PageTimeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.ExcludePatterns, err = flags.GetStringSlice("exclude"); err != nil {
		return nil, err
	}
	if cfg.BaseExcludeURL, err = flags.GetString("base-exclude"); err != nil {
		return nil, err
	}
	if cfg.IncludeExternal, err = flags.GetBool("include-external"); err != nil {
		return nil, err
	}
	if cfg.MaxLinksPerPage, err = flags.GetInt("max-links"); err != nil {
		return nil, err
	}

	if cfg.NoRender, err = flags.GetBool("no-render"); err != nil {
		return nil, err
	}
	if cfg.RenderTimeout, err = flags.GetDuration("render-timeout"); err != nil {
		return nil, err
	}
	if cfg.BrowserBin, err = flags.GetString("browser-bin"); err != nil {
		return nil, err
	}
	if cfg.ScrollSteps, err = flags.GetInt("scroll-steps"); err != nil {
		return nil, err
	}
	if cfg.NoSandbox, err = flags.GetBool("no-sandbox"); err != nil {
		return nil, err
	}

	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}

	if cfg.NoPrefilter, err = flags.GetBool("no-prefilter"); err != nil {
		return nil, err
	}
	if cfg.Refresh, err = flags.GetBool("refresh"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}

	if cfg.SourceNames, err = flags.GetStringSlice("source"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ShowURLs, err = flags.GetBool("urls"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noStore, err := flags.GetBool("no-store")
	if err != nil {
		return nil, err
	}
	if !noStore {
		cfg.SaveToDB = true
		cfg.DBDir = config.XDGDataDir()
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Roots = args

	if err := loadSources(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSources loads the sources file into cfg.
// An explicit --config path must exist. Ad-hoc roots without --source
// crawl only the roots, so the default locations are not searched then.
func loadSources(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	if !explicitConfigPath && len(cfg.Roots) > 0 && len(cfg.SourceNames) == 0 {
		return nil
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if explicitConfigPath {
			return fmt.Errorf("sources file not found: %s", cfg.ConfigFilePath)
		}
		return nil
	}

	sources, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load sources file %s: %w", configPath, err)
	}
	cfg.Sources = sources
	return nil
}

// runCrawl crawls every target of cfg and writes the report.
// Progress lines go to progress, the report goes to stdout unless
// cfg.ReportFile is set.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, progress io.Writer) error {
	targets, err := cfg.Targets()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if len(targets) == 0 {
		return fmt.Errorf("configuration error: %w", config.ErrNoTarget)
	}
	for _, target := range targets {
		if err := target.Validate(); err != nil {
			return fmt.Errorf("invalid source %s: %w", target.DisplayName(), err)
		}
	}

	logger.Info("starting crawl",
		"sources", len(targets),
		"batchSize", cfg.BatchSize,
		"render", !cfg.NoRender,
		"prefilter", !cfg.NoPrefilter,
		"saveToDB", cfg.SaveToDB,
	)

	// Every source builds its clients from the same proxy setting.
	if _, err := fetch.NewHTTPClient(fetch.ClientOptions{ProxyAddress: cfg.ProxyAddress}); err != nil {
		return fmt.Errorf("invalid proxy: %w", err)
	}

	pcfg := pipeline.DefaultPipelineConfig{
		Refresh: cfg.Refresh,
		Logger:  logger,
	}

	var store *database.URLStore
	if cfg.SaveToDB && cfg.DBDir != "" {
		store, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		logger.Info("database opened", "path", store.Path())
		pcfg.Store = store
	}

	settings := pipeline.FetchSettings{
		ProxyAddress:  cfg.ProxyAddress,
		UserAgent:     cfg.UserAgent,
		MaxBodySize:   cfg.MaxBodySize,
		RenderTimeout: cfg.RenderTimeout,
		Logger:        logger,
	}

	if !cfg.NoRender {
		renderer := fetch.NewRodRenderer(
			fetch.WithBrowserBin(cfg.BrowserBin),
			fetch.WithScrollSteps(cfg.ScrollSteps),
			fetch.WithNoSandbox(cfg.NoSandbox),
			fetch.WithRenderLogger(logger),
		)
		defer func() {
			if err := renderer.Close(); err != nil {
				logger.Warn("failed to close browser", "error", err)
			}
		}()
		settings.Renderer = renderer
	}

	if !cfg.NoPrefilter {
		pcfg.NewFilter = pipeline.NewPrefilterFactory(pipeline.PrefilterSettings{
			ProxyAddress: cfg.ProxyAddress,
			UserAgent:    cfg.UserAgent,
			Concurrency:  cfg.PrefilterConcurrency,
			Timeout:      cfg.PrefilterTimeout,
			Logger:       logger,
		})
	}

	factory := pipeline.NewSpiderFactory(settings)
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			// A failed crawl stops the run so partial URL sets are never stored.
			return pipeline.DefaultPipeline(factory, pcfg, pipeline.WithLogger(logger))
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	fmt.Fprintf(progress, "Crawling %d source(s) (batch: %d)...\n", len(targets), cfg.BatchSize)
	startTime := time.Now()

	runs := make([]*model.SourceRun, len(targets))
	var mu sync.Mutex
	var completed int
	batchErr := bp.ProcessBatchWithCallback(ctx, targets, func(run *model.SourceRun, index int) {
		mu.Lock()
		defer mu.Unlock()

		runs[index] = run
		completed++
		fmt.Fprintf(progress, "[%d/%d] %s\n", completed, len(targets), progressLine(run))
	})

	fmt.Fprintf(progress, "Crawl finished in %s\n\n", time.Since(startTime).Round(time.Millisecond))

	// Interrupted runs are still recorded.
	saveCtx := context.WithoutCancel(ctx)
	for _, run := range runs {
		if err := saveRun(saveCtx, store, run, logger); err != nil {
			logger.Error("failed to save run", "source", run.Name(), "error", err)
		}
	}

	if err := outputReport(cfg, runs, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if batchErr != nil {
		return fmt.Errorf("crawl interrupted: %w", batchErr)
	}
	return nil
}

// progressLine summarizes a finished run in one line.
func progressLine(run *model.SourceRun) string {
	switch report.StatusOf(run) {
	case report.StatusCancelled:
		return fmt.Sprintf("%s: cancelled (%d urls kept)", run.Name(), len(run.URLs))
	case report.StatusFailed:
		return fmt.Sprintf("%s: failed: %s", run.Name(), run.ErrorMessage)
	case report.StatusCached:
		return fmt.Sprintf("%s: %d urls (cached)", run.Name(), len(run.URLs))
	default:
		return fmt.Sprintf("%s: %d urls (%d discovered, %d pages failed)",
			run.Name(), len(run.URLs), run.Discovered, run.FailedPages())
	}
}

// saveRun records run in the database.
// If store or run is nil, this function is a no-op.
func saveRun(ctx context.Context, store *database.URLStore, run *model.SourceRun, logger *slog.Logger) error {
	if store == nil || run == nil {
		return nil
	}

	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}

	logger.Debug("run saved to database", "source", run.Name())
	return nil
}

// outputReport writes the report in the requested format to cfg.ReportFile,
// or to stdout when no file is set.
func outputReport(cfg *config.Config, runs []*model.SourceRun, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list the URLs of authenticated catalogs.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := newReportWriter(cfg, output).Write(runs)
	return err
}

// newReportWriter selects the report writer for cfg.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output, report.WithMarkdownURLs(cfg.ShowURLs))
	default:
		return report.NewSimpleWriter(output,
			report.WithShowURLs(cfg.ShowURLs),
			report.WithVerbose(cfg.Verbose),
		)
	}
}
