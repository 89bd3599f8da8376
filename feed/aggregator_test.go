package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedmill/config"
	"feedmill/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFollows struct {
	authors []models.AuthorRef
	err     error
	calls   int
}

func (f *fakeFollows) FollowedAuthors(_ context.Context, _ int64) ([]models.AuthorRef, error) {
	f.calls++
	return f.authors, f.err
}

type fakePosts struct {
	recent  []models.Post
	popular []models.Post

	recentErr  error
	popularErr error

	recentCalls     int
	popularCalls    int
	recentLimit     int
	popularLimit    int
	excludedAuthors []models.AuthorRef
	excludedPostIDs []int64
}

func (f *fakePosts) RecentByAuthors(_ context.Context, _ []models.AuthorRef, limit int) ([]models.Post, error) {
	f.recentCalls++
	f.recentLimit = limit
	return f.recent, f.recentErr
}

func (f *fakePosts) PopularExcluding(_ context.Context, excludedAuthors []models.AuthorRef, excludedPostIDs []int64, limit int) ([]models.Post, error) {
	f.popularCalls++
	f.popularLimit = limit
	f.excludedAuthors = excludedAuthors
	f.excludedPostIDs = excludedPostIDs
	return f.popular, f.popularErr
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func userRef(id int64) models.AuthorRef {
	return models.AuthorRef{Kind: models.AuthorUser, ID: id}
}

func testPost(id int64, authorID int64, age time.Duration, likes int64) models.Post {
	return models.Post{
		ID:        id,
		Author:    models.Author{ID: authorID, Name: "author", Kind: models.AuthorUser},
		Content:   "content",
		CreatedAt: testNow.Add(-age),
		LikeCount: likes,
	}
}

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		BatchSize: 100,
		PageSize:  4,
		Discovery: config.DiscoveryConfig{Enabled: false, MaxItemsRatio: 0.5},
		Ranking: config.RankingConfig{
			RecencyWeight:        1.0,
			LikesWeight:          0.3,
			CommentsWeight:       0.2,
			RecencyHalfLifeHours: 24.0,
		},
	}
}

func newTestAggregator(follows *fakeFollows, posts *fakePosts, cfg config.FeedConfig) *Aggregator {
	agg := NewAggregator(follows, posts, cfg)
	agg.now = func() time.Time { return testNow }
	return agg
}

func TestBuildPageEmptyWithoutFollowsOrDiscovery(t *testing.T) {
	follows := &fakeFollows{}
	posts := &fakePosts{}
	agg := newTestAggregator(follows, posts, testFeedConfig())

	page, err := agg.BuildPage(context.Background(), 1, 1)

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, posts.recentCalls, "no candidate fetch for a user following nobody")
}

func TestBuildPageRanksFollowedPosts(t *testing.T) {
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2), userRef(3)}}
	posts := &fakePosts{recent: []models.Post{
		testPost(1, 2, 5*time.Hour, 0),
		testPost(2, 3, 1*time.Hour, 0),
		testPost(3, 2, 10*time.Hour, 0),
	}}
	agg := newTestAggregator(follows, posts, testFeedConfig())

	page, err := agg.BuildPage(context.Background(), 1, 1)

	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	// Identical engagement, so recency decides
	assert.Equal(t, int64(2), page.Items[0].ID)
	assert.Equal(t, int64(1), page.Items[1].ID)
	assert.Equal(t, int64(3), page.Items[2].ID)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 100, posts.recentLimit, "batch size caps the followed pool")
}

func TestBuildPageDiscoveryLimitIsPageSizeFraction(t *testing.T) {
	cfg := testFeedConfig()
	cfg.Discovery.Enabled = true
	// Page size 4, ratio 0.5: at most 2 discovery items regardless of the
	// batch size of 100.
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{
		recent:  []models.Post{testPost(1, 2, time.Hour, 0)},
		popular: []models.Post{testPost(50, 9, 2*time.Hour, 30)},
	}
	agg := newTestAggregator(follows, posts, cfg)

	page, err := agg.BuildPage(context.Background(), 7, 1)

	require.NoError(t, err)
	assert.Equal(t, 2, posts.popularLimit)
	assert.Equal(t, 2, page.Total)
	// Discovery excludes followed authors, the requesting user, and posts
	// already in the followed pool.
	assert.Contains(t, posts.excludedAuthors, userRef(2))
	assert.Contains(t, posts.excludedAuthors, userRef(7))
	assert.Equal(t, []int64{1}, posts.excludedPostIDs)
}

func TestBuildPageDiscoveryRatioRoundsUp(t *testing.T) {
	cfg := testFeedConfig()
	cfg.Discovery.Enabled = true
	cfg.PageSize = 15
	cfg.Discovery.MaxItemsRatio = 0.2

	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{recent: []models.Post{testPost(1, 2, time.Hour, 0)}}
	agg := newTestAggregator(follows, posts, cfg)

	_, err := agg.BuildPage(context.Background(), 1, 1)

	require.NoError(t, err)
	assert.Equal(t, 3, posts.popularLimit, "ceil(15 * 0.2) = 3")
}

func TestBuildPageDeduplicatesCandidates(t *testing.T) {
	cfg := testFeedConfig()
	cfg.Discovery.Enabled = true

	shared := testPost(42, 2, time.Hour, 10)
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{
		recent:  []models.Post{shared},
		popular: []models.Post{shared, testPost(43, 9, time.Hour, 5)},
	}
	agg := newTestAggregator(follows, posts, cfg)

	page, err := agg.BuildPage(context.Background(), 1, 1)

	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	ids := []int64{page.Items[0].ID, page.Items[1].ID}
	assert.ElementsMatch(t, []int64{42, 43}, ids)
}

func TestBuildPagePaginationComplete(t *testing.T) {
	cfg := testFeedConfig()
	cfg.PageSize = 3

	var recent []models.Post
	for i := int64(1); i <= 10; i++ {
		recent = append(recent, testPost(i, 2, time.Duration(i)*time.Hour, 0))
	}
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{recent: recent}
	agg := newTestAggregator(follows, posts, cfg)

	seen := map[int64]int{}
	var total int
	for pageNum := 1; pageNum <= 4; pageNum++ {
		page, err := agg.BuildPage(context.Background(), 1, pageNum)
		require.NoError(t, err)
		assert.Equal(t, 10, page.Total)
		total += len(page.Items)
		for _, item := range page.Items {
			seen[item.ID]++
		}
	}

	// Concatenating all pages reproduces the full ranked set exactly once
	// per item.
	assert.Equal(t, 10, total)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "post %d appeared %d times", id, count)
	}
}

func TestBuildPageOutOfRange(t *testing.T) {
	follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
	posts := &fakePosts{recent: []models.Post{testPost(1, 2, time.Hour, 0)}}
	agg := newTestAggregator(follows, posts, testFeedConfig())

	page, err := agg.BuildPage(context.Background(), 1, 99)

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.Total, "out-of-range pages still report the full total")
}

func TestBuildPagePropagatesSourceErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("follow source", func(t *testing.T) {
		agg := newTestAggregator(&fakeFollows{err: boom}, &fakePosts{}, testFeedConfig())
		_, err := agg.BuildPage(context.Background(), 1, 1)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("post source", func(t *testing.T) {
		follows := &fakeFollows{authors: []models.AuthorRef{userRef(2)}}
		agg := newTestAggregator(follows, &fakePosts{recentErr: boom}, testFeedConfig())
		_, err := agg.BuildPage(context.Background(), 1, 1)
		assert.ErrorIs(t, err, boom)
	})
}

func TestBuildPageUnknownUser(t *testing.T) {
	agg := newTestAggregator(&fakeFollows{err: ErrUserNotFound}, &fakePosts{}, testFeedConfig())

	_, err := agg.BuildPage(context.Background(), 404, 1)

	assert.ErrorIs(t, err, ErrUserNotFound)
}
