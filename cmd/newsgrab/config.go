package main

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/goquery"
	"gopkg.in/yaml.v3"
)

// SourceSpec pairs a source configuration with the built-in site that
// interprets it.
type SourceSpec struct {
	Site   string
	Config newsgrab.SourceConfig
}

// sourceEntry is one item of the sources file.
type sourceEntry struct {
	Name       string `yaml:"name"`
	Site       string `yaml:"site"`
	Enabled    *bool  `yaml:"enabled"`
	ListingURL string `yaml:"listingUrl"`
	MaxAgeDays *int   `yaml:"maxAgeDays"`
	Order      string `yaml:"order"`
	Discovery  string `yaml:"discovery"`
	FeedURL    string `yaml:"feedUrl"`
}

type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

// DefaultSources returns the built-in source configuration. Defier has no
// default listing URL and is disabled until one is configured.
func DefaultSources() []SourceSpec {
	return []SourceSpec{
		{Site: "mihanblockchain", Config: newsgrab.SourceConfig{
			Name:       "mihanblockchain",
			Enabled:    true,
			ListingURL: "https://mihanblockchain.com/category/news/",
			MaxAgeDays: 8,
		}},
		{Site: "arzdigital", Config: newsgrab.SourceConfig{
			Name:       "arzdigital",
			Enabled:    true,
			ListingURL: "https://arzdigital.com/breaking/",
			MaxAgeDays: 3,
		}},
		{Site: "defier", Config: newsgrab.SourceConfig{
			Name:       "defier",
			MaxAgeDays: 3,
		}},
	}
}

// Loader reads per-source configuration from a YAML file.
type Loader struct {
	// ReadFile defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

// Load returns the sources configured in path, or the defaults when path
// is empty. Entries naming a default source override only the fields they
// set. Returns EINVALID for an unreadable or invalid file.
func (l *Loader) Load(path string) ([]SourceSpec, error) {
	if path == "" {
		return validate(DefaultSources())
	}
	readFile := l.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(path)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EINVALID, "reading sources file: %v", err)
	}
	return Parse(data)
}

// Parse decodes a sources document and merges it over the defaults.
func Parse(data []byte) ([]SourceSpec, error) {
	var file sourcesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, newsgrab.Errorf(newsgrab.EINVALID, "parsing sources file: %v", err)
	}

	specs := DefaultSources()
	for _, e := range file.Sources {
		i := indexOf(specs, e.Name)
		if i < 0 {
			specs = append(specs, SourceSpec{Site: e.Name, Config: newsgrab.SourceConfig{Name: e.Name, Enabled: true}})
			i = len(specs) - 1
		}
		e.apply(&specs[i])
	}
	return validate(specs)
}

func (e sourceEntry) apply(spec *SourceSpec) {
	if e.Site != "" {
		spec.Site = e.Site
	}
	if e.Enabled != nil {
		spec.Config.Enabled = *e.Enabled
	}
	if e.ListingURL != "" {
		spec.Config.ListingURL = e.ListingURL
	}
	if e.MaxAgeDays != nil {
		spec.Config.MaxAgeDays = *e.MaxAgeDays
	}
	if e.Order != "" {
		spec.Config.Order = newsgrab.Order(e.Order)
	}
	if e.Discovery != "" {
		spec.Config.Discovery = newsgrab.DiscoveryMode(e.Discovery)
	}
	if e.FeedURL != "" {
		spec.Config.FeedURL = e.FeedURL
	}
}

func indexOf(specs []SourceSpec, name string) int {
	for i, s := range specs {
		if s.Config.Name == name {
			return i
		}
	}
	return -1
}

func validate(specs []SourceSpec) ([]SourceSpec, error) {
	for _, s := range specs {
		if err := s.Config.Validate(); err != nil {
			return nil, err
		}
		if _, err := goquery.LookupSite(s.Site); err != nil {
			return nil, newsgrab.Errorf(newsgrab.EINVALID, "source %q: %s", s.Config.Name, newsgrab.ErrorMessage(err))
		}
	}
	return specs, nil
}
