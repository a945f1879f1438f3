package provider

import (
	"context"
	"fmt"
	"time"
)

// Static serves fixed demo headlines for any category. It is only registered
// when no real upstream is configured, so the service stays usable offline.
type Static struct {
	now func() time.Time
}

func NewStatic() *Static {
	return &Static{now: time.Now}
}

func (s *Static) Name() string { return "static" }

func (s *Static) CanHandle(string) bool { return true }

func (s *Static) Priority() int { return 0 }

func (s *Static) FetchTopHeadlines(ctx context.Context, category string) ([]RawArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	published := s.now().UTC().Truncate(time.Minute)
	return []RawArticle{
		{
			ID:          fmt.Sprintf("%s-1", category),
			Title:       fmt.Sprintf("Test News 1 (%s)", category),
			Description: "desc1",
			Source:      "newsd demo",
			PublishedAt: published,
		},
		{
			ID:          fmt.Sprintf("%s-2", category),
			Title:       fmt.Sprintf("Test News 2 (%s)", category),
			Description: "desc2",
			Source:      "newsd demo",
			PublishedAt: published,
		},
	}, nil
}
