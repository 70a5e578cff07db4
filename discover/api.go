package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-shelf/config"
	"github.com/aluiziolira/go-scrape-shelf/fetch"
	"github.com/aluiziolira/go-scrape-shelf/models"
)

// collectionQuery is the site's UserCollection operation, verbatim.
const collectionQuery = `
query UserCollection($action: ProductAction, $categoryId: Int, $gameSystemId: Int,
                    $genreId: Int, $isAgenda: Boolean, $keywords: String, $limit: Int,
                    $month: Int, $offset: Int, $order: CollectionSort, $showTvAgenda: Boolean,
                    $universe: String, $username: String!, $versus: Boolean, $year: Int,
                    $yearDateDone: Int, $yearDateRelease: Int) {
    user(username: $username) {
        collection(
            action: $action
            categoryId: $categoryId
            gameSystemId: $gameSystemId
            genreId: $genreId
            isAgenda: $isAgenda
            keywords: $keywords
            limit: $limit
            month: $month
            offset: $offset
            order: $order
            showTvAgenda: $showTvAgenda
            universe: $universe
            versus: $versus
            year: $year
            yearDateDone: $yearDateDone
            yearDateRelease: $yearDateRelease
        ) {
            total
            products {
                title
                id
                url
                yearOfProduction
                __typename
            }
            __typename
        }
    }
}`

// APIScanner pages through the GraphQL collection endpoint at a fixed
// batch size and increasing offset, stopping on the first empty batch.
type APIScanner struct {
	cfg    *config.Config
	client *fetch.Client
	seen   *seenCache
}

// NewAPIScanner builds the API pagination strategy.
func NewAPIScanner(cfg *config.Config, client *fetch.Client) *APIScanner {
	return &APIScanner{
		cfg:    cfg,
		client: client,
		seen:   newSeenCache(),
	}
}

type collectionResponse struct {
	Data struct {
		User struct {
			Collection struct {
				Total    int `json:"total"`
				Products []struct {
					Title            string `json:"title"`
					ID               int64  `json:"id"`
					URL              string `json:"url"`
					YearOfProduction *int   `json:"yearOfProduction"`
				} `json:"products"`
			} `json:"collection"`
		} `json:"user"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Discover fetches batches until one comes back empty. A failure mid
// pagination terminates discovery early and returns the references
// gathered so far along with the error.
func (s *APIScanner) Discover(ctx context.Context) ([]models.ItemRef, error) {
	var refs []models.ItemRef

	for offset := 0; ; offset += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return refs, err
		}

		batch, err := s.fetchBatch(ctx, offset)
		if err != nil {
			return refs, fmt.Errorf("fetch offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, ref := range batch {
			if !s.seen.admit(refKey(ref)) {
				slog.Debug("duplicate reference dropped", slog.Int64("id", ref.ID))
				continue
			}
			refs = append(refs, ref)
		}
		slog.Debug("collection batch",
			slog.Int("offset", offset),
			slog.Int("items", len(batch)),
		)
	}

	return refs, nil
}

func (s *APIScanner) fetchBatch(ctx context.Context, offset int) ([]models.ItemRef, error) {
	payload := map[string]any{
		"operationName": "UserCollection",
		"variables":     s.variables(offset),
		"query":         collectionQuery,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	raw, err := s.client.Post(ctx, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp collectionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", resp.Errors[0].Message)
	}

	products := resp.Data.User.Collection.Products
	refs := make([]models.ItemRef, 0, len(products))
	for _, p := range products {
		refs = append(refs, models.ItemRef{
			ID:    p.ID,
			URL:   p.URL,
			Title: p.Title,
			Year:  p.YearOfProduction,
		})
	}
	return refs, nil
}

// variables builds the operation variables. Unset filters are sent as
// null, matching what the site's own client does.
func (s *APIScanner) variables(offset int) map[string]any {
	vars := map[string]any{
		"action":          nil,
		"categoryId":      nil,
		"gameSystemId":    nil,
		"genreId":         nil,
		"keywords":        nil,
		"limit":           s.cfg.BatchSize,
		"offset":          offset,
		"order":           s.cfg.SortOrder,
		"universe":        s.cfg.Universe,
		"username":        s.cfg.Username,
		"yearDateDone":    nil,
		"yearDateRelease": nil,
	}
	if s.cfg.CategoryID != 0 {
		vars["categoryId"] = s.cfg.CategoryID
	}
	if s.cfg.GenreID != 0 {
		vars["genreId"] = s.cfg.GenreID
	}
	if s.cfg.Keywords != "" {
		vars["keywords"] = s.cfg.Keywords
	}
	if s.cfg.YearDone != 0 {
		vars["yearDateDone"] = s.cfg.YearDone
	}
	if s.cfg.YearRelease != 0 {
		vars["yearDateRelease"] = s.cfg.YearRelease
	}
	return vars
}
