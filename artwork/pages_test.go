package artwork

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artfetch/artfetch/types"
)

func TestGetObjectsFullyCachedPage(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ids := make([]int, 30)
	for i := range ids {
		ids[i] = i + 1
	}
	e.upstream.mu.Lock()
	e.upstream.searchIDs = ids
	e.upstream.mu.Unlock()

	// The first twenty candidates are already cached with valid images.
	for i := 1; i <= 20; i++ {
		e.cacheArtwork(t, i, fmt.Sprintf("https://images.example/%d.jpg", i))
	}

	page, err := e.provider.GetObjects(ctx, 1, 20, false, nil)
	require.NoError(t, err)
	require.NotNil(t, page)

	require.Len(t, page.Data, 20)
	for i, artwork := range page.Data {
		assert.Equal(t, fmt.Sprintf("%d", i+1), artwork.ID, "cache hits keep original id order")
	}

	assert.Equal(t, int64(0), e.upstream.fetchCalls.Load(),
		"a fully cached page issues no object fetches")
	assert.Equal(t, 30, page.Total)
	assert.Equal(t, 2, page.LastPage)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 20, page.PerPage)
}

func TestGetObjectsOversampleSkipsImageless(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchIDs = []int{1, 2, 3, 4, 5}
	e.upstream.mu.Unlock()

	// Object 3 exists but has no image; 4 and 5 are usable.
	e.upstream.addObject(3, "No Image", "")
	e.upstream.addObject(4, "With Image", "https://images.example/4.jpg")
	e.upstream.addObject(5, "Also With Image", "https://images.example/5.jpg")

	page, err := e.provider.GetObjects(ctx, 2, 2, false, nil)
	require.NoError(t, err)

	require.LessOrEqual(t, len(page.Data), 2)
	require.Len(t, page.Data, 2)

	got := []string{page.Data[0].ID, page.Data[1].ID}
	assert.ElementsMatch(t, []string{"4", "5"}, got,
		"the oversampled window compensates for the imageless candidate")

	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.LastPage)
}

func TestGetObjectsListingFailureYieldsEmptyPage(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchErr = types.ErrListingUnavailable
	e.upstream.mu.Unlock()

	page, err := e.provider.GetObjects(ctx, 1, 10, false, nil)
	require.NoError(t, err, "listing failure degrades to an empty page, not an error")
	require.NotNil(t, page)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.LastPage)
}

func TestGetObjectsEmptyListing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	page, err := e.provider.GetObjects(ctx, 1, 10, false, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.Total)
}

func TestGetObjectsPageBeyondListing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchIDs = []int{1, 2, 3, 4, 5}
	e.upstream.mu.Unlock()

	page, err := e.provider.GetObjects(ctx, 10, 2, false, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, 10, page.CurrentPage)
}

func TestGetObjectsListingCachedAcrossPages(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchIDs = []int{1, 2, 3, 4}
	e.upstream.mu.Unlock()
	for i := 1; i <= 4; i++ {
		e.cacheArtwork(t, i, fmt.Sprintf("https://images.example/%d.jpg", i))
	}

	_, err := e.provider.GetObjects(ctx, 1, 2, false, nil)
	require.NoError(t, err)
	_, err = e.provider.GetObjects(ctx, 2, 2, false, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), e.upstream.searchCalls.Load(),
		"the id listing is fetched once and reused across pages")
}

func TestGetObjectsPageResultCached(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchIDs = []int{1, 2}
	e.upstream.mu.Unlock()
	e.upstream.addObject(1, "One", "https://images.example/1.jpg")
	e.upstream.addObject(2, "Two", "https://images.example/2.jpg")

	first, err := e.provider.GetObjects(ctx, 1, 2, false, nil)
	require.NoError(t, err)
	fetchesAfterFirst := e.upstream.fetchCalls.Load()

	second, err := e.provider.GetObjects(ctx, 1, 2, false, nil)
	require.NoError(t, err)

	assert.Equal(t, fetchesAfterFirst, e.upstream.fetchCalls.Load())
	assert.Equal(t, int64(1), e.upstream.searchCalls.Load())
	assert.Equal(t, len(first.Data), len(second.Data))
}

func TestGetObjectsRejectsInvalidPerPage(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.provider.GetObjects(context.Background(), 1, 0, false, nil)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestHighlightsAndFullListingCachedSeparately(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchIDs = []int{1}
	e.upstream.mu.Unlock()
	e.cacheArtwork(t, 1, "https://images.example/1.jpg")

	_, err := e.provider.GetObjects(ctx, 1, 1, true, nil)
	require.NoError(t, err)
	_, err = e.provider.GetObjects(ctx, 1, 1, false, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), e.upstream.searchCalls.Load(),
		"highlights and full listings are distinct cache entries")
}

func TestSearchResultCached(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchIDs = []int{7}
	e.upstream.mu.Unlock()
	e.upstream.addObject(7, "Sunflowers", "https://images.example/7.jpg")

	first, err := e.provider.Search(ctx, "sunflowers", 1, 4, nil, nil)
	require.NoError(t, err)
	require.Len(t, first.Data, 1)
	assert.Equal(t, "7", first.Data[0].ID)

	second, err := e.provider.Search(ctx, "sunflowers", 1, 4, nil, nil)
	require.NoError(t, err)
	require.Len(t, second.Data, 1)

	assert.Equal(t, int64(1), e.upstream.searchCalls.Load(),
		"a repeated search is served from the page cache")
}

func TestSearchListingFailureYieldsEmptyPage(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchErr = types.ErrListingUnavailable
	e.upstream.mu.Unlock()

	page, err := e.provider.Search(ctx, "anything", 1, 10, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestSearchDistinctQueriesDistinctCaches(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchIDs = []int{9}
	e.upstream.mu.Unlock()
	e.upstream.addObject(9, "Nine", "https://images.example/9.jpg")

	_, err := e.provider.Search(ctx, "irises", 1, 4, nil, nil)
	require.NoError(t, err)
	_, err = e.provider.Search(ctx, "waterlilies", 1, 4, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), e.upstream.searchCalls.Load())
}

func TestDepartmentsCached(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.departments = []types.Department{
		{DepartmentID: 11, DisplayName: "European Paintings"},
	}
	e.upstream.mu.Unlock()

	first, err := e.provider.Departments(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := e.provider.Departments(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "European Paintings", second[0].DisplayName)

	assert.Equal(t, int64(1), e.upstream.deptCalls.Load())
}

func TestBatchSequentialFallbackOnPoolFailure(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.upstream.mu.Lock()
	e.upstream.searchIDs = []int{1, 2}
	e.upstream.mu.Unlock()
	e.upstream.addObject(1, "One", "https://images.example/1.jpg")
	e.upstream.addObject(2, "Two", "https://images.example/2.jpg")

	// A parallel-pass error drops partial results; the sequential sweep
	// must still assemble the page from per-item fetches.
	fetched, err := e.provider.fetchParallel(ctx, []int{1, 2}, 2)
	require.NoError(t, err)
	require.Len(t, fetched, 2)

	sequential := e.provider.fetchSequential(ctx, []int{1, 2}, 2)
	require.Len(t, sequential, 2)
	assert.Equal(t, "1", sequential[0].ID)
	assert.Equal(t, "2", sequential[1].ID)
}
