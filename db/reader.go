package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedmill/feed"
	"feedmill/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Reader implements the feed package's FollowSource and PostSource interfaces
// over the SQLite database. It owns a read-only connection pool and is safe
// for concurrent use.
type Reader struct {
	db *sql.DB
}

func NewReader(database string) (*Reader, error) {
	db, err := readConnection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return &Reader{db: db}, nil
}

func (reader *Reader) Close() error {
	return reader.db.Close()
}

// FollowedAuthors returns the set of authors the user follows. An unknown
// user id yields feed.ErrUserNotFound.
func (reader *Reader) FollowedAuthors(ctx context.Context, userID int64) ([]models.AuthorRef, error) {
	var one int
	existsQuery := sqlbuilder.NewSelectBuilder()
	existsQuery.Select("1").From("users")
	existsQuery.Where(existsQuery.Equal("id", userID))
	query, args := existsQuery.BuildWithFlavor(sqlbuilder.SQLite)

	err := reader.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, feed.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user lookup error: %w", err)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("author_kind", "author_id").From("follows")
	sb.Where(sb.Equal("user_id", userID))
	query, args = sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := reader.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var authors []models.AuthorRef
	for rows.Next() {
		var kind string
		var id int64
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		authors = append(authors, models.AuthorRef{Kind: models.AuthorKind(kind), ID: id})
	}

	return authors, rows.Err()
}

// RecentByAuthors returns the most recent posts by the given authors, newest
// first, capped at limit, with denormalized counts and author names attached.
func (reader *Reader) RecentByAuthors(ctx context.Context, authors []models.AuthorRef, limit int) ([]models.Post, error) {
	if len(authors) == 0 {
		return nil, nil
	}

	sb := postSelect()
	sb.Where(authorCondition(sb, authors))
	sb.OrderBy("posts.created_at DESC", "posts.id DESC")
	sb.Limit(limit)

	return reader.queryPosts(ctx, sb)
}

// PopularExcluding returns up to limit posts ordered by like count, skipping
// the given authors and post ids. This is the discovery pre-filter: ranking
// proper happens in memory afterwards.
func (reader *Reader) PopularExcluding(ctx context.Context, excludedAuthors []models.AuthorRef, excludedPostIDs []int64, limit int) ([]models.Post, error) {
	sb := postSelect()

	if len(excludedAuthors) > 0 {
		sb.Where(fmt.Sprintf("NOT (%s)", authorCondition(sb, excludedAuthors)))
	}
	if len(excludedPostIDs) > 0 {
		ids := lo.Map(excludedPostIDs, func(id int64, _ int) interface{} { return id })
		sb.Where(sb.NotIn("posts.id", ids...))
	}

	sb.OrderBy("posts.like_count DESC", "posts.id DESC")
	sb.Limit(limit)

	return reader.queryPosts(ctx, sb)
}

// postSelect builds the base candidate query joining author names from
// whichever table the morph kind points at.
func postSelect() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"posts.id",
		"posts.author_kind",
		"posts.author_id",
		"COALESCE(users.name, shops.name, '') AS author_name",
		"posts.content",
		"posts.created_at",
		"posts.like_count",
		"posts.comment_count",
	)
	sb.From("posts")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "users",
		"posts.author_kind = 'user'", "users.id = posts.author_id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "shops",
		"posts.author_kind = 'shop'", "shops.id = posts.author_id")
	return sb
}

// authorCondition builds the (kind, id) membership condition for a mixed set
// of user and shop authors.
func authorCondition(sb *sqlbuilder.SelectBuilder, authors []models.AuthorRef) string {
	groups := lo.GroupBy(authors, func(a models.AuthorRef) models.AuthorKind { return a.Kind })

	conditions := make([]string, 0, len(groups))
	for kind, refs := range groups {
		ids := lo.Map(refs, func(a models.AuthorRef, _ int) interface{} { return a.ID })
		conditions = append(conditions, sb.And(
			sb.Equal("posts.author_kind", string(kind)),
			sb.In("posts.author_id", ids...),
		))
	}

	return sb.Or(conditions...)
}

func (reader *Reader) queryPosts(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.Post, error) {
	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	log.WithFields(log.Fields{
		"sql": query,
	}).Debug("Generated candidate query")

	rows, err := reader.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		var kind string
		var createdAt int64
		if err := rows.Scan(
			&post.ID,
			&kind,
			&post.Author.ID,
			&post.Author.Name,
			&post.Content,
			&createdAt,
			&post.LikeCount,
			&post.CommentCount,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		post.Author.Kind = models.AuthorKind(kind)
		post.CreatedAt = time.Unix(createdAt, 0)
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

var _ feed.FollowSource = (*Reader)(nil)
var _ feed.PostSource = (*Reader)(nil)
