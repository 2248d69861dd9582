package mock

import "github.com/fwojciec/newsgrab"

var _ newsgrab.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of newsgrab.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*newsgrab.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*newsgrab.ExtractResult, error) {
	return e.ExtractFn(html)
}

var _ newsgrab.Segmenter = (*Segmenter)(nil)

// Segmenter is a mock implementation of newsgrab.Segmenter.
type Segmenter struct {
	SegmentFn func(bodyHTML, baseURL string) (*newsgrab.SegmentResult, error)
}

func (s *Segmenter) Segment(bodyHTML, baseURL string) (*newsgrab.SegmentResult, error) {
	return s.SegmentFn(bodyHTML, baseURL)
}
