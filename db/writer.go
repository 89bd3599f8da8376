package db

import (
	"context"
	"database/sql"
	"fmt"

	"feedmill/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Writer owns the single write connection. In the full system post and follow
// writes happen in upstream services; here the writer backs seeding, tests
// and retention tidying.
type Writer struct {
	db *sql.DB
}

func NewWriter(database string) (*Writer, error) {
	db, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return &Writer{db: db}, nil
}

func (writer *Writer) Close() error {
	return writer.db.Close()
}

func (writer *Writer) CreateUser(ctx context.Context, name string) (int64, error) {
	return writer.insert(ctx, "users", []string{"name"}, name)
}

func (writer *Writer) CreateShop(ctx context.Context, name string) (int64, error) {
	return writer.insert(ctx, "shops", []string{"name"}, name)
}

// Follow records that a user follows an author. Inserting the same edge twice
// is a no-op.
func (writer *Writer) Follow(ctx context.Context, userID int64, author models.AuthorRef) error {
	_, err := writer.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO follows (user_id, author_kind, author_id) VALUES (?, ?, ?)",
		userID, string(author.Kind), author.ID,
	)
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

// CreatePost inserts a post with its denormalized counts. The counts are
// maintained by upstream write paths in the real system; the ranking pipeline
// only ever reads them.
func (writer *Writer) CreatePost(ctx context.Context, post models.Post) (int64, error) {
	return writer.insert(ctx, "posts",
		[]string{"author_kind", "author_id", "content", "created_at", "like_count", "comment_count"},
		string(post.Author.Kind), post.Author.ID, post.Content, post.CreatedAt.Unix(), post.LikeCount, post.CommentCount,
	)
}

func (writer *Writer) insert(ctx context.Context, table string, cols []string, values ...interface{}) (int64, error) {
	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto(table).Cols(cols...).Values(values...)
	query, args := ib.BuildWithFlavor(sqlbuilder.SQLite)

	res, err := writer.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert id error: %w", err)
	}
	return id, nil
}

// TidyPosts removes posts with a created_at older than the cutoff and returns
// how many were removed. Keeps the candidate tables lean; old posts decay out
// of ranking relevance long before they are removed.
func (writer *Writer) TidyPosts(ctx context.Context, cutoff int64) (int64, error) {
	deleteOld := sqlbuilder.NewDeleteBuilder()
	deleteOld.DeleteFrom("posts")
	deleteOld.Where(deleteOld.LessThan("created_at", cutoff))
	query, args := deleteOld.BuildWithFlavor(sqlbuilder.SQLite)

	res, err := writer.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete error: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"removed": removed,
	}).Info("Tidied old posts")

	return removed, nil
}
