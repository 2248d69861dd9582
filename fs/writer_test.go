package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestArticlePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "article slug", url: "https://arzdigital.com/breaking/btc-rally", want: "arzdigital.com/breaking/btc-rally.md"},
		{name: "trailing slash becomes index", url: "https://mihanblockchain.com/eth-update/", want: "mihanblockchain.com/eth-update/index.md"},
		{name: "site root", url: "https://defier.io", want: "defier.io/index.md"},
		{name: "query and fragment ignored", url: "https://defier.io/news/a?utm=x#comments", want: "defier.io/news/a.md"},
		{name: "port dropped", url: "http://127.0.0.1:8080/news/a", want: "127.0.0.1/news/a.md"},
		{name: "dot segments cannot escape", url: "https://defier.io/../../etc/passwd", want: "defier.io/etc/passwd.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := fs.ArticlePath(tt.url)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()

		_, err := fs.ArticlePath("://bad")

		require.Error(t, err)
	})

	t.Run("relative url", func(t *testing.T) {
		t.Parallel()

		_, err := fs.ArticlePath("/news/a")

		assert.Equal(t, newsgrab.EINVALID, newsgrab.ErrorCode(err))
	})
}

func preview() *newsgrab.Article {
	a := &newsgrab.Article{
		Title:      "Bitcoin: rally continues",
		SourceURL:  "https://arzdigital.com/breaking/btc-rally/",
		SourceDate: "2025-04-09",
		Creator:    "Desk",
		Tags:       []string{"btc", "market"},
	}
	a.Content.Set("p0", "Body.")
	return a
}

func TestFormatArticle(t *testing.T) {
	t.Parallel()

	got, err := fs.FormatArticle(preview(), "# Bitcoin\n\nBody.")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(got, "---\n"))
	header, body, ok := strings.Cut(strings.TrimPrefix(got, "---\n"), "---\n\n")
	require.True(t, ok)
	assert.Equal(t, "# Bitcoin\n\nBody.", body)
	assert.Contains(t, header, "tags: [btc, market]")

	var meta map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(header), &meta))
	assert.Equal(t, "Bitcoin: rally continues", meta["title"])
	assert.Equal(t, "2025-04-09", meta["date"])
	assert.Equal(t, "Desk", meta["creator"])
}

func TestWriter_WriteArticle(t *testing.T) {
	t.Parallel()

	t.Run("writes the preview under the host and path", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		path, err := fs.NewWriter(dir).WriteArticle(preview(), "Body.")

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "arzdigital.com", "breaking", "btc-rally", "index.md"), path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Bitcoin: rally continues")
	})

	t.Run("rejects an article without content", func(t *testing.T) {
		t.Parallel()

		_, err := fs.NewWriter(t.TempDir()).WriteArticle(&newsgrab.Article{Title: "x"}, "")

		assert.Equal(t, newsgrab.EINVALID, newsgrab.ErrorCode(err))
	})
}
