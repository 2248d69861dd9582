package newsgrab

// SegmentResult is the outcome of segmenting an article body.
type SegmentResult struct {
	Content Content
	Images  []*Image
}

// Segmenter turns article body markup into an ordered content map.
// Segmentation is deterministic for identical markup. Image URLs are
// resolved against baseURL when it is not empty.
type Segmenter interface {
	Segment(bodyHTML, baseURL string) (*SegmentResult, error)
}
