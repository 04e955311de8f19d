package artwork

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artfetch/artfetch/types"
	"github.com/artfetch/artfetch/utils"
)

// GetObjects assembles one page of artworks from the cached object-id
// listing. A failed listing call degrades to an explicit empty page, never a
// hard error.
func (p *Provider) GetObjects(ctx context.Context, page, perPage int, highlightsOnly bool, departmentID *int) (*types.Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return nil, types.Errorf(types.ErrInvalidParameter, "per_page must be positive, got %d", perPage)
	}

	cacheKey := pageKey(page, perPage, highlightsOnly, departmentID)
	if cached := p.readCachedPage(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	ids, err := p.listObjectIDs(ctx, highlightsOnly, departmentID)
	if err != nil {
		p.logger.Warn("Object-id listing unavailable, serving empty page",
			zap.Bool("highlights_only", highlightsOnly),
			zap.Error(err))
		return emptyPage(page, perPage), nil
	}

	result := p.assemblePage(ctx, ids, page, perPage)
	p.storePage(ctx, cacheKey, result)

	return result, nil
}

// Search runs a paginated collection search. The final page result is cached
// under the hashed query key; the raw id listing for ad-hoc queries is not
// cached separately.
func (p *Provider) Search(ctx context.Context, query string, page, perPage int, departmentID *int, isHighlight *bool) (*types.Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return nil, types.Errorf(types.ErrInvalidParameter, "per_page must be positive, got %d", perPage)
	}

	cacheKey := searchKey(query, page, perPage, departmentID, isHighlight)
	if cached := p.readCachedPage(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	ids, err := p.upstream.SearchObjectIDs(ctx, types.SearchQuery{
		Query:        query,
		HasImages:    true,
		IsHighlight:  isHighlight,
		DepartmentID: departmentID,
	})
	if err != nil {
		p.logger.Warn("Search listing unavailable, serving empty page",
			zap.String("query", query),
			zap.Error(err))
		return emptyPage(page, perPage), nil
	}

	result := p.assemblePage(ctx, ids, page, perPage)
	p.storePage(ctx, cacheKey, result)

	return result, nil
}

func (p *Provider) listObjectIDs(ctx context.Context, highlightsOnly bool, departmentID *int) ([]int, error) {
	key := listingKey(highlightsOnly, departmentID)

	if data, ok := p.store.Get(ctx, key); ok {
		var ids []int
		if err := utils.Unmarshal(data, &ids); err == nil {
			return ids, nil
		}
		_ = p.store.Delete(ctx, key)
	}

	query := types.SearchQuery{
		HasImages:    true,
		DepartmentID: departmentID,
	}
	if highlightsOnly {
		highlight := true
		query.IsHighlight = &highlight
	}

	ids, err := p.upstream.SearchObjectIDs(ctx, query)
	if err != nil {
		return nil, types.WrapError(err, "object-id listing fetch failed")
	}

	if data, err := utils.Marshal(ids); err == nil {
		if err := p.store.Set(ctx, key, data, p.fetchCfg.ListingTTL); err != nil {
			p.logger.Warn("Failed to cache object-id listing",
				zap.String("key", key),
				zap.Error(err))
		}
	}

	return ids, nil
}

// assemblePage slices the candidate window out of the id listing and fills it
// with valid artworks. The window is oversized to compensate for candidates
// later found to lack a usable image.
func (p *Provider) assemblePage(ctx context.Context, ids []int, page, perPage int) *types.Page {
	total := len(ids)
	lastPage := (total + perPage - 1) / perPage

	offset := (page - 1) * perPage
	if offset >= total {
		return &types.Page{
			Data:        []*types.Artwork{},
			CurrentPage: page,
			PerPage:     perPage,
			Total:       total,
			LastPage:    lastPage,
		}
	}

	window := int(math.Ceil(float64(perPage) * p.fetchCfg.Oversample))
	end := offset + window
	if end > total {
		end = total
	}

	return &types.Page{
		Data:        p.fetchBatch(ctx, ids[offset:end], perPage),
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}
}

// fetchBatch resolves up to want valid artworks from the candidate ids:
// first a pure cache pass in id order with early stop, then parallel fetches
// for the remainder, then a sequential sweep if the parallel pass itself
// failed. A cached record without an image counts as resolved-and-skipped,
// it is not refetched.
func (p *Provider) fetchBatch(ctx context.Context, candidates []int, want int) []*types.Artwork {
	results := make([]*types.Artwork, 0, want)
	missing := make([]int, 0, len(candidates))

	for _, id := range candidates {
		if len(results) >= want {
			break
		}

		cached := p.readCached(ctx, id)
		if cached != nil {
			if cached.HasImage() {
				results = append(results, cached)
			}
			continue
		}

		missing = append(missing, id)
	}

	if len(results) >= want || len(missing) == 0 {
		return results
	}

	fetched, err := p.fetchParallel(ctx, missing, want-len(results))
	if err != nil {
		p.logger.Warn("Parallel batch fetch failed, falling back to sequential",
			zap.Int("candidates", len(missing)),
			zap.Error(err))
		fetched = p.fetchSequential(ctx, missing, want-len(results))
	}

	results = append(results, fetched...)
	if len(results) > want {
		results = results[:want]
	}

	return results
}

func (p *Provider) fetchParallel(ctx context.Context, ids []int, want int) ([]*types.Artwork, error) {
	var mu sync.Mutex
	results := make([]*types.Artwork, 0, want)

	enough := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) >= want
	}

	for start := 0; start < len(ids) && !enough(); start += p.fetchCfg.MaxConcurrent {
		end := start + p.fetchCfg.MaxConcurrent
		if end > len(ids) {
			end = len(ids)
		}

		g, gCtx := errgroup.WithContext(ctx)

		for _, id := range ids[start:end] {
			id := id
			g.Go(func() error {
				if enough() {
					return nil
				}

				artwork, err := p.GetObject(gCtx, id, false)
				if err != nil {
					return err
				}

				if artwork != nil && artwork.HasImage() {
					mu.Lock()
					if len(results) < want {
						results = append(results, artwork)
					}
					mu.Unlock()
				}

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			// Partial results are dropped; the sequential fallback
			// re-reads the cache so completed fetches are not repeated
			// upstream.
			return nil, err
		}
	}

	return results, nil
}

func (p *Provider) fetchSequential(ctx context.Context, ids []int, want int) []*types.Artwork {
	results := make([]*types.Artwork, 0, want)

	for _, id := range ids {
		if len(results) >= want {
			break
		}
		if ctx.Err() != nil {
			break
		}

		artwork, err := p.GetObject(ctx, id, false)
		if err != nil {
			p.logger.Warn("Sequential fetch failed",
				zap.Int("object_id", id),
				zap.Error(err))
			continue
		}

		if artwork != nil && artwork.HasImage() {
			results = append(results, artwork)
		}
	}

	return results
}

func (p *Provider) readCachedPage(ctx context.Context, key string) *types.Page {
	data, ok := p.store.Get(ctx, key)
	if !ok {
		return nil
	}

	var page types.Page
	if err := utils.Unmarshal(data, &page); err != nil {
		p.logger.Warn("Discarding unreadable cached page",
			zap.String("key", key),
			zap.Error(err))
		_ = p.store.Delete(ctx, key)
		return nil
	}

	return &page
}

func (p *Provider) storePage(ctx context.Context, key string, page *types.Page) {
	data, err := utils.Marshal(page)
	if err != nil {
		p.logger.Error("Failed to marshal page result",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	if err := p.store.Set(ctx, key, data, p.fetchCfg.PageTTL); err != nil {
		p.logger.Error("Failed to cache page result",
			zap.String("key", key),
			zap.Error(err))
	}
}

func emptyPage(page, perPage int) *types.Page {
	return &types.Page{
		Data:        []*types.Artwork{},
		CurrentPage: page,
		PerPage:     perPage,
		Total:       0,
		LastPage:    0,
	}
}
