// Package fs stores images and article previews on the local filesystem.
package fs

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fwojciec/newsgrab"
	"gopkg.in/yaml.v3"
)

// ArticlePath maps an article URL to a relative markdown path under its
// host, so previews of different sites never collide:
// https://arzdigital.com/news/btc/ becomes arzdigital.com/news/btc/index.md.
func ArticlePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", newsgrab.Errorf(newsgrab.EINVALID, "article URL %q has no host", rawURL)
	}

	p := path.Clean("/" + u.Path)
	switch {
	case p == "/":
		p = "/index.md"
	case strings.HasSuffix(u.Path, "/"):
		p += "/index.md"
	default:
		p += ".md"
	}
	return u.Hostname() + p, nil
}

// frontmatter is the YAML header of a preview file.
type frontmatter struct {
	Source  string   `yaml:"source"`
	Title   string   `yaml:"title"`
	Date    string   `yaml:"date"`
	Creator string   `yaml:"creator,omitempty"`
	Tags    []string `yaml:"tags,flow,omitempty"`
}

// FormatArticle prefixes markdown with a YAML header describing article.
func FormatArticle(article *newsgrab.Article, markdown string) (string, error) {
	header, err := yaml.Marshal(frontmatter{
		Source:  article.SourceURL,
		Title:   article.Title,
		Date:    article.SourceDate,
		Creator: article.Creator,
		Tags:    article.Tags,
	})
	if err != nil {
		return "", err
	}
	return "---\n" + string(header) + "---\n\n" + markdown, nil
}

// Writer writes article previews as markdown files under a directory.
type Writer struct {
	baseDir string
}

// NewWriter creates a Writer rooted at baseDir.
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// WriteArticle writes the preview of article and returns the file path.
// Returns EINVALID for an article without title or content.
func (w *Writer) WriteArticle(article *newsgrab.Article, markdown string) (string, error) {
	if err := article.Validate(); err != nil {
		return "", err
	}
	rel, err := ArticlePath(article.SourceURL)
	if err != nil {
		return "", err
	}
	doc, err := FormatArticle(article, markdown)
	if err != nil {
		return "", err
	}

	full := filepath.Join(w.baseDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	return full, os.WriteFile(full, []byte(doc), 0o644)
}
