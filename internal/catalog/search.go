package catalog

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/anveshak/internal/models"
)

const fuzziness = 1

type titleDoc struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// newTitleIndex returns an in-memory index over footprint titles and IDs.
func newTitleIndex() (bleve.Index, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	title := bleve.NewTextFieldMapping()
	// standard analyzer: no stemming, so mosaic codes like "B01" stay intact
	title.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", title)
	id := bleve.NewTextFieldMapping()
	id.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", id)
	im.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create footprint index: %w", err)
	}
	return idx, nil
}

// Search returns up to limit footprints whose title matches query, best first.
// An exact ID match always ranks first. When no title term matches exactly,
// the query is retried with edit-distance tolerance.
func (c *Catalog) Search(query string, limit int) ([]*models.Footprint, error) {
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = 20
	}
	if query == "" {
		all := c.List()
		if len(all) > limit {
			all = all[:limit]
		}
		return all, nil
	}

	ids, err := c.search(exactQuery(query), limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		if ids, err = c.search(fuzzyQuery(query), limit); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.Footprint, 0, len(ids))
	for _, id := range ids {
		if fp, ok := c.byID[id]; ok {
			out = append(out, fp)
		}
	}
	return out, nil
}

func (c *Catalog) search(q blevequery.Query, limit int) ([]string, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := c.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("footprint search: %w", err)
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

func exactQuery(query string) blevequery.Query {
	byID := bleve.NewTermQuery(query)
	byID.SetField("id")
	byID.SetBoost(10)

	byTitle := bleve.NewMatchQuery(query)
	byTitle.SetField("title")
	return bleve.NewDisjunctionQuery(byID, byTitle)
}

func fuzzyQuery(query string) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField("title")
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}
