package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedmill/cache"
	"feedmill/config"
	"feedmill/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Backend:    "memory",
		TTLMinutes: 60,
		Prefix:     "test:",
	}
}

func newTestService(t *testing.T, follows *fakeFollows, posts *fakePosts) *Service {
	t.Helper()

	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(store.Close)

	agg := newTestAggregator(follows, posts, testFeedConfig())
	return NewService(agg, NewCache(store, testCacheConfig()))
}

func TestGetPageCachesBuiltPages(t *testing.T) {
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{recent: []models.Post{testPost(1, 2, time.Hour, 3)}}
	service := newTestService(t, follows, posts)

	first, err := service.GetPage(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	second, err := service.GetPage(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, follows.calls, "second request must be served from cache")
	assert.Equal(t, 1, posts.recentCalls)
}

func TestGetPageDistinctPagesBuildSeparately(t *testing.T) {
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{recent: []models.Post{testPost(1, 2, time.Hour, 3)}}
	service := newTestService(t, follows, posts)

	_, err := service.GetPage(context.Background(), 1, 1)
	require.NoError(t, err)
	_, err = service.GetPage(context.Background(), 1, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, follows.calls, "each (user, page) pair is cached independently")
}

func TestGetPageUnknownUserYieldsEmptyPage(t *testing.T) {
	service := newTestService(t, &fakeFollows{err: ErrUserNotFound}, &fakePosts{})

	page, err := service.GetPage(context.Background(), 404, 1)

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
}

func TestGetPagePropagatesUpstreamFailure(t *testing.T) {
	boom := errors.New("boom")
	service := newTestService(t, &fakeFollows{err: boom}, &fakePosts{})

	_, err := service.GetPage(context.Background(), 1, 1)

	assert.ErrorIs(t, err, boom)
}

func TestGetPageClampsPageNumber(t *testing.T) {
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{recent: []models.Post{testPost(1, 2, time.Hour, 0)}}
	service := newTestService(t, follows, posts)

	page, err := service.GetPage(context.Background(), 1, -3)

	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
}

func TestInvalidatePageForcesRebuild(t *testing.T) {
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{recent: []models.Post{testPost(1, 2, time.Hour, 0)}}
	service := newTestService(t, follows, posts)

	_, err := service.GetPage(context.Background(), 1, 1)
	require.NoError(t, err)

	require.NoError(t, service.InvalidatePage(context.Background(), 1, 1))

	_, err = service.GetPage(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, follows.calls)
}

func TestInvalidateUserDropsAllPages(t *testing.T) {
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{recent: []models.Post{testPost(1, 2, time.Hour, 0)}}
	service := newTestService(t, follows, posts)

	_, err := service.GetPage(context.Background(), 1, 1)
	require.NoError(t, err)
	_, err = service.GetPage(context.Background(), 1, 2)
	require.NoError(t, err)

	require.NoError(t, service.InvalidateUser(context.Background(), 1))

	_, err = service.GetPage(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, follows.calls)
}
