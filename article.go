package newsgrab

import (
	"strings"
	"time"
)

// StatusDraft is the status every submitted article carries.
const StatusDraft = "draft"

// DateLayout is the layout of Article.SourceDate.
const DateLayout = time.DateOnly

// RawArticle is the unprocessed content of one article page.
// It is owned by the Source that fetched it and consumed by ToStructured.
type RawArticle struct {
	URL          string
	PublishedAt  time.Time
	Author       string
	Title        string
	BodyHTML     string
	ThumbnailURL string
	Tags         []string
}

// Article is a structured article ready for submission.
//
// Content keys are typed and numbered (p0, h2_0, li0, blockquote0, img0).
// Every img{n} key holds the placeholder token for that id and pairs with
// exactly one entry in Images.
type Article struct {
	Title          string   `json:"title"`
	SourceURL      string   `json:"sourceUrl"`
	SourceDate     string   `json:"sourceDate"`
	Creator        string   `json:"creator"`
	ThumbnailImage string   `json:"thumbnailImage,omitempty"`
	Content        Content  `json:"content"`
	Images         []*Image `json:"imagesUrl"`
	Tags           []string `json:"tags"`
	Status         string   `json:"status"`
}

// Validate returns an error if the article cannot be submitted.
func (a *Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return Errorf(EINVALID, "article title required")
	}
	if a.Content.Len() == 0 {
		return Errorf(EINVALID, "article content required")
	}
	return nil
}

// ImageType distinguishes figure blocks from bare images.
type ImageType string

// Image types.
const (
	ImageFigure ImageType = "figure"
	ImageInline ImageType = "image"
)

// Image references an image embedded in an article. URL starts as the
// source URL and is replaced with the rehosted URL before submission.
type Image struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	Caption string    `json:"caption,omitempty"`
	Type    ImageType `json:"type"`
}

// Placeholder returns the token that stands in for the image id in content.
func Placeholder(id string) string {
	return "**IMAGE_PLACEHOLDER_" + id + "**"
}
