package cmd

import (
	"context"
	"math/rand"
	"time"

	"feedmill/db"
	"feedmill/models"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Populate the database with fake data",
		Description: `Fills the configured database with fake users, shops, follows and
posts for local development. Posts get randomized ages and engagement
counts so the ranking has something interesting to chew on.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
			&cli.IntFlag{
				Name:  "users",
				Value: 50,
				Usage: "Number of users to create",
			},
			&cli.IntFlag{
				Name:  "shops",
				Value: 10,
				Usage: "Number of shops to create",
			},
			&cli.IntFlag{
				Name:  "posts",
				Value: 500,
				Usage: "Number of posts to create",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			writer, err := db.NewWriter(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer writer.Close()

			return seed(ctx.Context, writer, ctx.Int("users"), ctx.Int("shops"), ctx.Int("posts"))
		},
	}
}

func seed(ctx context.Context, writer *db.Writer, userCount, shopCount, postCount int) error {
	authors := make([]models.AuthorRef, 0, userCount+shopCount)

	userIDs := make([]int64, 0, userCount)
	for i := 0; i < userCount; i++ {
		id, err := writer.CreateUser(ctx, gofakeit.Name())
		if err != nil {
			return err
		}
		userIDs = append(userIDs, id)
		authors = append(authors, models.AuthorRef{Kind: models.AuthorUser, ID: id})
	}

	for i := 0; i < shopCount; i++ {
		id, err := writer.CreateShop(ctx, gofakeit.Company())
		if err != nil {
			return err
		}
		authors = append(authors, models.AuthorRef{Kind: models.AuthorShop, ID: id})
	}

	// Each user follows a handful of random authors
	follows := 0
	for _, userID := range userIDs {
		for i := 0; i < 3+rand.Intn(8); i++ {
			author := authors[rand.Intn(len(authors))]
			if author.Kind == models.AuthorUser && author.ID == userID {
				continue
			}
			if err := writer.Follow(ctx, userID, author); err != nil {
				return err
			}
			follows++
		}
	}

	now := time.Now()
	for i := 0; i < postCount; i++ {
		author := authors[rand.Intn(len(authors))]
		post := models.Post{
			Author:       models.Author{ID: author.ID, Kind: author.Kind},
			Content:      gofakeit.Sentence(12),
			CreatedAt:    now.Add(-time.Duration(rand.Intn(7*24*60)) * time.Minute),
			LikeCount:    int64(rand.Intn(200)),
			CommentCount: int64(rand.Intn(40)),
		}
		if _, err := writer.CreatePost(ctx, post); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"users":   userCount,
		"shops":   shopCount,
		"follows": follows,
		"posts":   postCount,
	}).Info("Seeded database")

	return nil
}
