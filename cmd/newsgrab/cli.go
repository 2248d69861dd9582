package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/ingest"
	"github.com/fwojciec/newsgrab/telemetry"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Globals *Globals
	Sources []SourceSpec

	Fetcher   newsgrab.Fetcher
	Dates     newsgrab.DateParser
	Converter newsgrab.Converter
	Tracker   *telemetry.Tracker
	Runs      newsgrab.RunService
	Ingester  *ingest.Ingester
}

// Globals are the flags shared by every command.
type Globals struct {
	SinkURL    string `name:"sink-url" env:"NEWSGRAB_SINK_URL" help:"Base URL of the article store API"`
	SinkAPIKey string `name:"sink-api-key" env:"NEWSGRAB_SINK_API_KEY" help:"API key sent to the article store"`

	MaxRetries int           `name:"max-retries" default:"3" env:"NEWSGRAB_MAX_RETRIES" help:"Submission attempts per article"`
	RetryBase  time.Duration `name:"retry-base" default:"1s" env:"NEWSGRAB_RETRY_BASE" help:"Delay before the first retry, doubled each attempt"`
	ItemDelay  time.Duration `name:"item-delay" default:"20s" env:"NEWSGRAB_ITEM_DELAY" help:"Pause between processed articles"`
	Timeout    time.Duration `default:"10s" env:"NEWSGRAB_TIMEOUT" help:"Per-request timeout"`
	RPS        float64       `name:"rps" default:"1" env:"NEWSGRAB_RPS" help:"Requests per second per domain"`

	DB           string `name:"db" env:"NEWSGRAB_DB" help:"SQLite database path for run history and local articles"`
	ImageDir     string `name:"image-dir" default:"images" env:"NEWSGRAB_IMAGE_DIR" help:"Directory for images in local mode"`
	ImageBaseURL string `name:"image-base-url" default:"/images" env:"NEWSGRAB_IMAGE_BASE_URL" help:"URL prefix of images in local mode"`
	SourcesFile  string `name:"sources-file" env:"NEWSGRAB_SOURCES" help:"YAML file with per-source configuration"`

	Local   bool `env:"NEWSGRAB_LOCAL" help:"Store articles in SQLite and images on disk instead of the remote API"`
	Browser bool `env:"NEWSGRAB_BROWSER" help:"Fetch pages with a headless browser"`
	Verbose bool `short:"v" help:"Enable debug logging"`
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Globals

	Serve     ServeCmd     `cmd:"" help:"Run the scheduler and the trigger API"`
	Run       RunCmd       `cmd:"" help:"Run sources once and print a summary"`
	Preview   PreviewCmd   `cmd:"" help:"Fetch one article and print it as markdown"`
	ParseDate ParseDateCmd `cmd:"" name:"parse-date" help:"Normalize a source date"`
	Sources   SourcesCmd   `cmd:"" help:"List configured sources"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr     string        `default:":8000" env:"NEWSGRAB_ADDR" help:"Listen address of the trigger API"`
	APIKey   string        `name:"api-key" env:"NEWSGRAB_API_KEY" help:"Key required by mutating API routes"`
	Interval time.Duration `default:"2h" env:"NEWSGRAB_INTERVAL" help:"Time between scheduled batches"`
	NoStart  bool          `name:"no-start" help:"Wait for the API to start the scheduler"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	Source string `arg:"" optional:"" help:"Run only this source, even if disabled"`
}

// PreviewCmd is the "preview" subcommand.
type PreviewCmd struct {
	URL  string `arg:"" help:"Article URL"`
	Site string `required:"" help:"Built-in site whose selectors apply"`
	Out  string `short:"o" help:"Also write the markdown under this directory"`
}

// ParseDateCmd is the "parse-date" subcommand.
type ParseDateCmd struct {
	Text     string `arg:"" help:"Date text as it appears on the site"`
	Calendar string `default:"auto" enum:"auto,jalali,iso" help:"Calendar of the text (auto, jalali, iso)"`
}

// SourcesCmd is the "sources" subcommand.
type SourcesCmd struct{}
