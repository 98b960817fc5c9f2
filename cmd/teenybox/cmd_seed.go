package main

import (
	"context"
	"time"

	"github.com/teeny-box/teenybox-server/internal/seed"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	seedOptions = seed.DefaultOptions
	seedValue   int64
)

var seedCommand = &cobra.Command{
	Use:   "seed",
	Short: "Fill the configured store with fake users, items and comments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return seedCommandImpl(cmd.Context())
	},
}

func seedCommandImpl(ctx context.Context) error {
	var (
		store  *storage
		logger *zap.Logger
	)
	application := fx.New(
		baseOptions(),
		fx.Populate(&store, &logger),
	)
	if err := application.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := application.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()

	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	seeder := seed.NewSeeder(
		seed.NewFactory(seedValue),
		logger.Named("seed"),
		store.users,
		store.posts,
		store.promotions,
		store.comments,
	)

	res, err := seeder.Run(ctx, seedOptions)
	if err != nil {
		return err
	}
	logger.Info("seeding finished",
		zap.Int64("seed", seedValue),
		zap.Int("users", res.Users),
		zap.Int("posts", res.Posts),
		zap.Int("promotions", res.Promotions),
		zap.Int("comments", res.Comments),
		zap.Int("likes", res.Likes),
	)
	return nil
}

func init() {
	flags := seedCommand.Flags()
	flags.IntVar(&seedOptions.NumUsers, "users", seedOptions.NumUsers, "number of plain users to create")
	flags.IntVar(&seedOptions.NumAdmins, "admins", seedOptions.NumAdmins, "number of admins to create")
	flags.IntVar(&seedOptions.NumPosts, "posts", seedOptions.NumPosts, "number of posts to create")
	flags.IntVar(&seedOptions.NumPromotions, "promotions", seedOptions.NumPromotions, "number of promotions to create")
	flags.IntVar(&seedOptions.CommentsPerItem, "comments", seedOptions.CommentsPerItem, "comments per item")
	flags.IntVar(&seedOptions.MaxLikes, "max-likes", seedOptions.MaxLikes, "most likes any single item receives")
	flags.Int64Var(&seedValue, "seed", 0, "random seed; 0 picks one from the clock")

	rootCommand.AddCommand(seedCommand)
}
