package newsgrab

// ExtractResult holds the content a general-purpose extractor found on a
// page. It backs up site selectors that no longer match.
type ExtractResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// Author is the byline from metadata, if any.
	Author string

	// ImageURL is the page's lead image from metadata, if any.
	ImageURL string

	// Tags are categories and keywords from metadata.
	Tags []string

	// ContentHTML is the main content as clean HTML.
	// Boilerplate (nav, footer, sidebar, ads) has been removed.
	ContentHTML string
}

// Extractor extracts main content from HTML pages, removing boilerplate.
type Extractor interface {
	// Extract processes raw HTML and returns the main content.
	Extract(html string) (*ExtractResult, error)
}
