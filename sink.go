package newsgrab

import "context"

// Sink is the article store structured articles are submitted to.
type Sink interface {
	// Exists reports whether an article with sourceURL was already stored.
	Exists(ctx context.Context, sourceURL string) (bool, error)

	// PostArticle stores the article. Failures are retryable; callers
	// guard against duplicates with Exists.
	PostArticle(ctx context.Context, article *Article) (*PostResult, error)
}

// PostResult is returned by a successful PostArticle.
type PostResult struct {
	ID string `json:"id"`
}

// ImageStore hosts images on behalf of the article store.
type ImageStore interface {
	// UploadImage stores data and returns its public URL.
	UploadImage(ctx context.Context, data []byte, filename, mimeType string) (string, error)
}
