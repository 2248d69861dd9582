package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ newsgrab.Sink = (*ArticleStore)(nil)

// ArticleStore is a local article store. It stands in for the remote
// store when ingesting without one.
type ArticleStore struct {
	db *DB

	// Now returns the creation timestamp. Defaults to time.Now.
	Now func() time.Time
}

// NewArticleStore creates a new ArticleStore.
func NewArticleStore(db *DB) *ArticleStore {
	return &ArticleStore{db: db, Now: time.Now}
}

// Exists reports whether an article with sourceURL is stored.
func (s *ArticleStore) Exists(ctx context.Context, sourceURL string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE source_url = ?`, sourceURL).Scan(&n)
	if err != nil {
		return false, newsgrab.Errorf(newsgrab.EEXISTS, "checking %s: %v", sourceURL, err)
	}
	return n > 0, nil
}

// PostArticle stores the article as JSON. Returns ECONFLICT if an article
// with the same source URL is already stored.
func (s *ArticleStore) PostArticle(ctx context.Context, article *newsgrab.Article) (*newsgrab.PostResult, error) {
	if err := article.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(article)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.ESUBMIT, "encoding %s: %v", article.SourceURL, err)
	}

	id := uuid.New().String()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (id, source_url, title, source_date, body, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url) DO NOTHING
	`, id, article.SourceURL, article.Title, article.SourceDate, string(body), hashContent(body),
		formatTime(s.Now()))
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.ESUBMIT, "storing %s: %v", article.SourceURL, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, newsgrab.Errorf(newsgrab.ECONFLICT, "article %s already stored", article.SourceURL)
	}
	return &newsgrab.PostResult{ID: id}, nil
}

// FindArticleBySourceURL returns the stored article for sourceURL.
func (s *ArticleStore) FindArticleBySourceURL(ctx context.Context, sourceURL string) (*newsgrab.Article, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM articles WHERE source_url = ?`, sourceURL).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, newsgrab.Errorf(newsgrab.ENOTFOUND, "article not found")
	}
	if err != nil {
		return nil, err
	}

	var article newsgrab.Article
	if err := json.Unmarshal([]byte(body), &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// CountArticles returns the number of stored articles.
func (s *ArticleStore) CountArticles(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n)
	return n, err
}
