package htmltomarkdown_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/htmltomarkdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	t.Run("converts headings and paragraphs", func(t *testing.T) {
		t.Parallel()

		md, err := htmltomarkdown.NewConverter().Convert(`<h1>Title</h1><h2>Market</h2><p>Prices rose.</p>`)

		require.NoError(t, err)
		assert.Contains(t, md, "# Title")
		assert.Contains(t, md, "## Market")
		assert.Contains(t, md, "Prices rose.")
	})

	t.Run("converts links and lists", func(t *testing.T) {
		t.Parallel()

		md, err := htmltomarkdown.NewConverter().Convert(`<p>See <a href="https://example.com">source</a></p><ul><li>One</li><li>Two</li></ul>`)

		require.NoError(t, err)
		assert.Contains(t, md, "[source](https://example.com)")
		assert.Contains(t, md, "- One")
		assert.Contains(t, md, "- Two")
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := htmltomarkdown.NewConverter().Convert("   ")

		require.Error(t, err)
		assert.Equal(t, newsgrab.EINVALID, newsgrab.ErrorCode(err))
	})
}

func TestConverter_ConvertArticle(t *testing.T) {
	t.Parallel()

	t.Run("renders content in key order with images", func(t *testing.T) {
		t.Parallel()

		a := &newsgrab.Article{
			Title: "Bitcoin rallies",
			Images: []*newsgrab.Image{
				{ID: "img0", URL: "https://cdn.example.com/chart.png", Caption: "Daily chart", Type: newsgrab.ImageFigure},
			},
		}
		a.Content.Set("p0", "Prices rose.")
		a.Content.Set("img0", newsgrab.Placeholder("img0"))
		a.Content.Set("h2_0", "Outlook")
		a.Content.Set("li0", "Resistance at 95k")

		md, err := htmltomarkdown.NewConverter().ConvertArticle(a)

		require.NoError(t, err)
		assert.Contains(t, md, "# Bitcoin rallies")
		assert.Contains(t, md, "![](https://cdn.example.com/chart.png)")
		assert.Contains(t, md, "Daily chart")
		assert.Contains(t, md, "- Resistance at 95k")
		assert.Less(t, strings.Index(md, "Prices rose."), strings.Index(md, "chart.png"))
		assert.Less(t, strings.Index(md, "chart.png"), strings.Index(md, "## Outlook"))
		assert.NotContains(t, md, "IMAGE_PLACEHOLDER")
	})
}

func TestConverter_ConvertArticle_Links(t *testing.T) {
	t.Parallel()

	t.Run("resolves relative links against the source site and lists tags", func(t *testing.T) {
		t.Parallel()

		a := &newsgrab.Article{
			Title:     "ETF inflows",
			SourceURL: "https://arzdigital.com/news/etf/",
			Tags:      []string{"Bitcoin", "ETF"},
		}
		a.Content.Set("p0", `Read the <a href="/reports/q1">report</a>.`)

		md, err := htmltomarkdown.NewConverter().ConvertArticle(a)

		require.NoError(t, err)
		assert.Contains(t, md, "(https://arzdigital.com/reports/q1)")
		assert.True(t, strings.HasSuffix(md, "Tags: `Bitcoin` `ETF`"))
	})
}
