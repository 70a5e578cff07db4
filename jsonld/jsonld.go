// Package jsonld extracts a structured-data block from a detail page
// and maps it to a Record. The mapping is a pure function of the page
// content and the originating item reference.
package jsonld

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-shelf/models"
)

// ErrMalformed indicates the linked-data block exists but is not valid
// JSON. This is a hard failure for the item, unlike a missing block.
type ErrMalformed struct {
	Err error
}

func (e ErrMalformed) Error() string {
	return fmt.Errorf("malformed linked-data block: %w", e.Err).Error()
}

func (e ErrMalformed) Unwrap() error {
	return e.Err
}

// document mirrors the subset of the schema.org vocabulary the site
// embeds. Fields whose encoding varies between a scalar and a list are
// held raw and normalized in the mapping step.
type document struct {
	Name            string          `json:"name"`
	Creator         json.RawMessage `json:"creator"`
	ISBN            string          `json:"isbn"`
	Description     string          `json:"description"`
	Genre           json.RawMessage `json:"genre"`
	AggregateRating *struct {
		RatingValue float64 `json:"ratingValue"`
		RatingCount int     `json:"ratingCount"`
	} `json:"aggregateRating"`
	Image       string `json:"image"`
	DateCreated string `json:"dateCreated"`
}

// Extract locates the page's linked-data script node and maps it to a
// Record. A page without the node yields (nil, nil): some pages lack it
// transiently and that is not an error. A present but unparseable node
// yields ErrMalformed.
func Extract(ref models.ItemRef, page []byte) (*models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	node := doc.Find(`script[type="application/ld+json"]`).First()
	if node.Length() == 0 {
		return nil, nil
	}

	var data document
	if err := json.Unmarshal([]byte(node.Text()), &data); err != nil {
		return nil, ErrMalformed{Err: err}
	}

	record := &models.Record{
		ID:               ref.ID,
		Title:            data.Name,
		Authors:          creatorNames(data.Creator),
		Genres:           genreSet(data.Genre),
		YearOfProduction: ref.Year,
	}
	if data.ISBN != "" {
		record.ISBN = &data.ISBN
	}
	if data.Description != "" {
		record.Description = &data.Description
	}
	if data.Image != "" {
		record.ImageURL = &data.Image
	}
	if data.DateCreated != "" {
		record.PublicationDate = &data.DateCreated
	}
	if agg := data.AggregateRating; agg != nil {
		rating := agg.RatingValue
		count := agg.RatingCount
		record.Rating = &rating
		record.RatingCount = &count
	}
	return record, nil
}

type creator struct {
	Name string `json:"name"`
}

// creatorNames normalizes the creator field to an ordered author list.
// The site encodes it as a list of objects, a single object, or a bare
// string depending on the work.
func creatorNames(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []creator
	if err := json.Unmarshal(raw, &list); err == nil {
		names := make([]string, 0, len(list))
		for _, c := range list {
			if name := strings.TrimSpace(c.Name); name != "" {
				names = append(names, name)
			}
		}
		return names
	}

	var single creator
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single.Name) != "" {
		return []string{strings.TrimSpace(single.Name)}
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil && strings.TrimSpace(name) != "" {
		return []string{strings.TrimSpace(name)}
	}
	return nil
}

// genreSet normalizes the genre field (scalar or list) into a sorted,
// de-duplicated slice.
func genreSet(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil
		}
		values = []string{single}
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
