package ingest

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/newsgrab"
	"golang.org/x/sync/errgroup"
)

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// MIMEType infers an image MIME type from the URL's file extension,
// defaulting to image/jpeg.
func MIMEType(rawURL string) string {
	if t, ok := mimeTypes[strings.ToLower(path.Ext(urlPath(rawURL)))]; ok {
		return t
	}
	return "image/jpeg"
}

// Filename returns the base name of the URL path. URLs without one get a
// name derived from the URL hash.
func Filename(rawURL string) string {
	base := path.Base(urlPath(rawURL))
	if base == "" || base == "." || base == "/" {
		return strconv.FormatUint(xxhash.Sum64String(rawURL), 16) + ".jpg"
	}
	return base
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}

// Rehoster copies an article's images into the image store and rewrites
// their URLs.
type Rehoster struct {
	Downloader newsgrab.Downloader
	Store      newsgrab.ImageStore

	// Concurrency bounds parallel uploads per article. Defaults to 4.
	Concurrency int

	Logger *slog.Logger
}

// Rehost uploads the thumbnail and every image of article. A failed
// thumbnail becomes empty; a failed image is dropped together with its
// content key. Rehost returns the number of failed uploads and never
// fails the article.
func (r *Rehoster) Rehost(ctx context.Context, article *newsgrab.Article) int {
	failed := 0

	if article.ThumbnailImage != "" {
		u, err := r.copy(ctx, article.ThumbnailImage)
		if err != nil {
			r.logger().Warn("thumbnail upload failed", "url", article.ThumbnailImage, "err", err)
			failed++
		}
		article.ThumbnailImage = u
	}

	urls := make([]string, len(article.Images))
	errs := make([]error, len(article.Images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency())
	for i, img := range article.Images {
		g.Go(func() error {
			urls[i], errs[i] = r.copy(gctx, img.URL)
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]*newsgrab.Image, 0, len(article.Images))
	for i, img := range article.Images {
		if errs[i] != nil {
			r.logger().Warn("image upload failed", "url", img.URL, "id", img.ID, "err", errs[i])
			article.Content.Delete(img.ID)
			failed++
			continue
		}
		img.URL = urls[i]
		kept = append(kept, img)
	}
	article.Images = kept
	return failed
}

func (r *Rehoster) copy(ctx context.Context, rawURL string) (string, error) {
	data, err := r.Downloader.Download(ctx, rawURL)
	if err != nil {
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "downloading %s: %v", rawURL, err)
	}
	u, err := r.Store.UploadImage(ctx, data, Filename(rawURL), MIMEType(rawURL))
	if err != nil {
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "uploading %s: %v", rawURL, err)
	}
	return u, nil
}

func (r *Rehoster) concurrency() int {
	if r.Concurrency <= 0 {
		return 4
	}
	return r.Concurrency
}

func (r *Rehoster) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
