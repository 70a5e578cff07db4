// Package discover produces the ordered list of item references to
// feed the detail pipeline. Two strategies exist: scanning the HTML
// listing pages, and paginating the site's GraphQL collection API.
package discover

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-shelf/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Discoverer yields the references of every item in the collection, in
// encounter order. On a mid-pagination failure the partial slice is
// returned together with the error; callers log it and proceed with
// what was gathered.
type Discoverer interface {
	Discover(ctx context.Context) ([]models.ItemRef, error)
}

const dedupeSize = 4096

// seenCache drops references already emitted during this discovery run.
// Overlapping pages or shifting API offsets can repeat an item.
type seenCache struct {
	cache *lru.Cache[string, struct{}]
}

func newSeenCache() *seenCache {
	cache, _ := lru.New[string, struct{}](dedupeSize)
	return &seenCache{cache: cache}
}

// admit reports whether the key is new, recording it as seen.
func (s *seenCache) admit(key string) bool {
	if _, ok := s.cache.Get(key); ok {
		return false
	}
	s.cache.Add(key, struct{}{})
	return true
}

// idFromPath extracts the numeric item id from a detail path such as
// /livre/dune/123456. Returns 0 when the path carries no id.
func idFromPath(path string) int64 {
	path = strings.TrimRight(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return 0
	}
	id, err := strconv.ParseInt(path[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func refKey(ref models.ItemRef) string {
	if ref.ID != 0 {
		return fmt.Sprintf("id:%d", ref.ID)
	}
	return "url:" + ref.URL
}
