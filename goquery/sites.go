package goquery

import (
	"maps"
	"slices"

	"github.com/fwojciec/newsgrab"
)

// Mihanblockchain is the selector table for mihanblockchain.com, a JNews
// WordPress theme with Jalali dates in its listing.
var Mihanblockchain = &newsgrab.Site{
	Name:         "mihanblockchain",
	Discovery:    newsgrab.DiscoverListing,
	ItemSelector: "div.jnews_category_content_wrapper article.jeg_post",
	LinkSelector: "div.jeg_meta_date > a, h3.jeg_post_title a",
	DateSelector: "div.jeg_meta_date",
	Calendar:     newsgrab.CalendarJalali,
	Order:        newsgrab.OldestFirst,

	TitleSelector:     "h1.jeg_post_title",
	AuthorSelector:    "div.jeg_meta_author > a",
	BodySelector:      "div.jeg_inner_content",
	ThumbnailSelector: ".jeg_featured .thumbnail-container img",
	TagSelector:       ".jeg_post_tags a",
	TagStopWords:      []string{"تگ:"},

	Exclude: []string{
		".entry-header",
		".jeg_meta_container",
		".jeg_featured",
		".jeg_share_top_container",
		".jeg_share_bottom_container",
		".jeg_ad",
		".jnews_prev_next_container",
		".jnews_author_box_container",
		".jnews_related_post_container",
		".jnews_popup_post_container",
		".jnews_comment_container",
		".jeg_postblock_22",
		".jeg_post_tags",
		".jeg_post_source",
		".ez-toc-v2_0_0",
	},
}

// Arzdigital is the selector table for the arzdigital.com breaking news
// feed. Its listing carries ISO dates in time[datetime] and interleaves
// ad redirects.
var Arzdigital = &newsgrab.Site{
	Name:         "arzdigital",
	Discovery:    newsgrab.DiscoverListing,
	ItemSelector: "div.arz-breaking-news__list > div.arz-breaking-news__item",
	LinkSelector: "a.arz-breaking-news__item-link",
	DateSelector: "time",
	DateAttr:     "datetime",
	Calendar:     newsgrab.CalendarISO,
	SkipPrefixes: []string{"https://adcmp"},
	MaxAgeCap:    3,
	Order:        newsgrab.NewestFirst,

	TitleSelector:     "header > h1.arz-breaking-news-post__title",
	AuthorSelector:    "section > a.arz-tw-text-sm",
	BodySelector:      "section.arz-container.arz-breaking-news-post > article",
	ThumbnailSelector: "header > figure.arz-breaking-news-post__image-container img",
	TagSelector:       "div.arz-breaking-news-post__path span.arz-path-text",
	SkipTags:          1,
	MaxTags:           10,

	Exclude: []string{
		"header",
		".arz-breaking-news-post__path",
	},
}

// Defier is the selector table for defier.ir.
var Defier = &newsgrab.Site{
	Name:         "defier",
	Discovery:    newsgrab.DiscoverListing,
	ItemSelector: "article",
	LinkSelector: "a[href]",
	DateSelector: "time",
	Calendar:     newsgrab.CalendarAuto,
	Order:        newsgrab.NewestFirst,

	TitleSelector:     "h1",
	AuthorSelector:    "article .author, article .creator",
	DefaultAuthor:     "Defier",
	BodySelector:      "article",
	ThumbnailSelector: "article img",
	TagSelector:       ".tags a, .categories a, .topics a",

	Exclude: []string{
		"h1",
		".comment", ".comments",
		".sidebar",
		".related",
		".tags", ".categories", ".topics",
	},
}

var sites = map[string]*newsgrab.Site{
	Mihanblockchain.Name: Mihanblockchain,
	Arzdigital.Name:      Arzdigital,
	Defier.Name:          Defier,
}

// LookupSite returns the built-in site named name.
// Returns ENOTFOUND if no such site exists.
func LookupSite(name string) (*newsgrab.Site, error) {
	site, ok := sites[name]
	if !ok {
		return nil, newsgrab.Errorf(newsgrab.ENOTFOUND, "unknown site %q", name)
	}
	return site, nil
}

// SiteNames returns the names of the built-in sites in sorted order.
func SiteNames() []string {
	return slices.Sorted(maps.Keys(sites))
}
