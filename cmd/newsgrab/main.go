package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/fs"
	"github.com/fwojciec/newsgrab/gofeed"
	"github.com/fwojciec/newsgrab/goquery"
	"github.com/fwojciec/newsgrab/htmltomarkdown"
	nghttp "github.com/fwojciec/newsgrab/http"
	"github.com/fwojciec/newsgrab/ingest"
	"github.com/fwojciec/newsgrab/jalaali"
	"github.com/fwojciec/newsgrab/readability"
	"github.com/fwojciec/newsgrab/rod"
	ngslog "github.com/fwojciec/newsgrab/slog"
	"github.com/fwojciec/newsgrab/sqlite"
	"github.com/fwojciec/newsgrab/telemetry"
	"github.com/fwojciec/newsgrab/trafilatura"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database used for run history and local articles.
	DB *sqlite.DB

	// Loader reads the sources file.
	Loader *Loader

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Loader: &Loader{}}
}

// Close releases everything opened by Run in reverse order.
func (m *Main) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:       ctx,
		Stdout:    stdout,
		Stderr:    stderr,
		Dates:     jalaali.NewParser(),
		Converter: htmltomarkdown.NewConverter(),
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("newsgrab"),
		kong.Description("Collect crypto news articles and submit them to an article store."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'newsgrab --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	deps.Globals = &cli.Globals
	deps.Logger = newLogger(stderr, cli.Verbose)
	defer m.Close()

	switch cmd {
	case "serve", "run", "sources":
		deps.Sources, err = m.Loader.Load(cli.SourcesFile)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: check the file passed with --sources-file")
			return err
		}
	}

	switch cmd {
	case "serve", "run", "preview":
		deps.Fetcher, err = m.newFetcher(&cli.Globals, deps.Logger)
		if err != nil {
			return err
		}
	}

	if cmd == "serve" || cmd == "run" {
		if err := m.wireIngester(deps); err != nil {
			return err
		}
	}

	return kongCtx.Run(deps)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newFetcher returns the page fetcher: plain HTTP, or a headless browser
// with --browser. Both share one per-domain limiter.
func (m *Main) newFetcher(g *Globals, logger *slog.Logger) (newsgrab.Fetcher, error) {
	limiter := ingest.NewDomainLimiter(g.RPS)
	if !g.Browser {
		return ngslog.NewLoggingFetcher(nghttp.NewFetcher(nghttp.WithTimeout(g.Timeout), nghttp.WithLimiter(limiter)), logger), nil
	}
	f, err := rod.NewFetcher(rod.WithLimiter(limiter))
	if err != nil {
		return nil, fmt.Errorf("failed to start browser (Chrome or Chromium must be installed): %w", err)
	}
	m.closers = append(m.closers, f)
	return ngslog.NewLoggingFetcher(f, logger), nil
}

// newSource builds the generic source engine for site with its discovery
// services and extraction fallbacks.
func newSource(site *newsgrab.Site, cfg newsgrab.SourceConfig, g *Globals, fetcher newsgrab.Fetcher, dates newsgrab.DateParser, logger *slog.Logger) newsgrab.Source {
	src := goquery.NewSource(site, cfg, fetcher, dates)
	src.Feeds = ngslog.NewLoggingFeedService(gofeed.NewFeedService(fetcher), logger)
	src.Sitemaps = ngslog.NewLoggingSitemapService(nghttp.NewSitemapService(&http.Client{Timeout: g.Timeout}), logger)
	src.Metadata = trafilatura.NewExtractor()
	src.Body = readability.NewExtractor()
	src.Logger = logger
	return ngslog.NewLoggingSource(src, logger)
}

// wireIngester opens the database and assembles the ingestion pipeline.
func (m *Main) wireIngester(deps *Dependencies) error {
	g := deps.Globals
	logger := deps.Logger

	if g.MaxRetries < 1 {
		return newsgrab.Errorf(newsgrab.EINVALID, "--max-retries must be at least 1, got %d", g.MaxRetries)
	}

	path := g.DB
	if path == "" {
		path = defaultDBPath()
	}
	m.DB = sqlite.NewDB(path)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintln(deps.Stderr, "Hint: Set NEWSGRAB_DB to use a different database path")
		return fmt.Errorf("failed to open database at %q: %w", path, err)
	}
	m.closers = append(m.closers, m.DB)

	var sink newsgrab.Sink
	var images newsgrab.ImageStore
	if g.Local {
		sink = sqlite.NewArticleStore(m.DB)
		images = fs.NewImageStore(g.ImageDir, g.ImageBaseURL)
	} else {
		if g.SinkURL == "" {
			fmt.Fprintln(deps.Stderr, "Hint: Set NEWSGRAB_SINK_URL or use --local")
			return newsgrab.Errorf(newsgrab.EINVALID, "sink URL required")
		}
		client := nghttp.NewSinkClient(g.SinkURL, g.SinkAPIKey, nghttp.WithSinkTimeout(g.Timeout))
		sink = client
		images = client
	}

	downloader := nghttp.NewFetcher(nghttp.WithTimeout(g.Timeout))
	deps.Tracker = telemetry.New()
	m.closers = append(m.closers, deps.Tracker)
	deps.Runs = sqlite.NewRunService(m.DB)

	in := &ingest.Ingester{
		Sink: ngslog.NewLoggingSink(sink, logger),
		Rehoster: &ingest.Rehoster{
			Downloader: ngslog.NewLoggingDownloader(downloader, logger),
			Store:      ngslog.NewLoggingImageStore(images, logger),
			Logger:     logger,
		},
		Tracker:     deps.Tracker,
		Runs:        deps.Runs,
		RetryDelays: ingest.BackoffDelays(g.MaxRetries, g.RetryBase),
		ItemDelay:   g.ItemDelay,
		Logger:      logger,
	}
	for _, spec := range deps.Sources {
		site, err := goquery.LookupSite(spec.Site)
		if err != nil {
			return err
		}
		src := newSource(site, spec.Config, g, deps.Fetcher, deps.Dates, logger)
		if err := in.Register(spec.Config, src); err != nil {
			return err
		}
	}
	deps.Ingester = in
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "newsgrab.db"
	}
	dir := filepath.Join(home, ".newsgrab")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "newsgrab.db")
}
