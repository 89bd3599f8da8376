package models

import "time"

// AuthorKind discriminates the two kinds of accounts that can author posts.
type AuthorKind string

const (
	AuthorUser AuthorKind = "user"
	AuthorShop AuthorKind = "shop"
)

// AuthorRef identifies an author without carrying profile data.
type AuthorRef struct {
	Kind AuthorKind `json:"kind"`
	ID   int64      `json:"id"`
}

// Author is the denormalized author info attached to a post.
type Author struct {
	ID   int64      `json:"id"`
	Name string     `json:"name"`
	Kind AuthorKind `json:"type"`
}

func (a Author) Ref() AuthorRef {
	return AuthorRef{Kind: a.Kind, ID: a.ID}
}

// Post is the read-only candidate view consumed by the ranking pipeline.
// Like and comment counts are denormalized and may be stale by whatever
// staleness window the upstream count cache uses.
type Post struct {
	ID           int64     `json:"id"`
	Author       Author    `json:"author"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	LikeCount    int64     `json:"likes_count"`
	CommentCount int64     `json:"comments_count"`
}

// ScoredPost pairs a post with its rank score. The score is only meaningful
// within the single ranking pass that produced it; it is never persisted or
// compared across passes.
type ScoredPost struct {
	Post
	Score float64 `json:"-"`
}

// FeedPage is the ranked, paginated result for one (user, page) pair. This is
// the value stored by the feed cache.
type FeedPage struct {
	UserID  int64  `json:"user_id"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Items   []Post `json:"items"`
	// Total is the size of the full ranked candidate set at generation time,
	// not the size of this page. Lets consumers know whether more pages exist.
	Total int `json:"total"`
}

// EmptyFeedPage returns a well-formed page with no items. Used both for users
// with nothing to show and for unknown users.
func EmptyFeedPage(userID int64, page int, perPage int) FeedPage {
	return FeedPage{
		UserID:  userID,
		Page:    page,
		PerPage: perPage,
		Items:   []Post{},
		Total:   0,
	}
}

// FeedResponse is the JSON shape served by the HTTP API.
type FeedResponse struct {
	Data    []Post `json:"data"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}
