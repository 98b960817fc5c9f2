package seed

import (
	"context"
	"fmt"

	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/repository"

	"go.uber.org/zap"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumAdmins       int
	NumPosts        int
	NumPromotions   int
	CommentsPerItem int
	// MaxLikes is the most likes any single item receives.
	MaxLikes int
}

// DefaultOptions is a small but lively data set.
var DefaultOptions = Options{
	NumUsers:        20,
	NumAdmins:       1,
	NumPosts:        60,
	NumPromotions:   15,
	CommentsPerItem: 3,
	MaxLikes:        8,
}

// Result counts what was written.
type Result struct {
	Users      int
	Posts      int
	Promotions int
	Comments   int
	Likes      int
}

// Seeder persists generated data through the repositories.
type Seeder struct {
	factory    *Factory
	logger     *zap.Logger
	users      repository.UserRepository
	posts      repository.ItemRepository[*models.Post]
	promotions repository.ItemRepository[*models.Promotion]
	comments   repository.CommentRepository
}

func NewSeeder(
	factory *Factory,
	logger *zap.Logger,
	users repository.UserRepository,
	posts repository.ItemRepository[*models.Post],
	promotions repository.ItemRepository[*models.Promotion],
	comments repository.CommentRepository,
) *Seeder {
	return &Seeder{
		factory:    factory,
		logger:     logger,
		users:      users,
		posts:      posts,
		promotions: promotions,
		comments:   comments,
	}
}

// Run creates users, then items with likes and comments.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}

	users := make([]*models.User, 0, opts.NumUsers+opts.NumAdmins)
	for i := 0; i < opts.NumUsers+opts.NumAdmins; i++ {
		user := s.factory.User()
		if i < opts.NumAdmins {
			user.Role = models.RoleAdmin
		}
		if err := s.users.Create(ctx, user); err != nil {
			return res, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	res.Users = len(users)
	s.logger.Info("seeded users", zap.Int("count", res.Users))
	if len(users) == 0 {
		return res, nil
	}

	for i := 0; i < opts.NumPosts; i++ {
		post := s.factory.Post(s.owner(users))
		if err := s.posts.Create(ctx, post); err != nil {
			return res, fmt.Errorf("create post: %w", err)
		}
		res.Posts++
		if err := s.engage(ctx, res, models.PostKind, post.Base(), post.PostNumber, s.posts.AddLike, users, opts); err != nil {
			return res, err
		}
	}
	s.logger.Info("seeded posts", zap.Int("count", res.Posts))

	for i := 0; i < opts.NumPromotions; i++ {
		promo := s.factory.Promotion(s.owner(users))
		if err := s.promotions.Create(ctx, promo); err != nil {
			return res, fmt.Errorf("create promotion: %w", err)
		}
		res.Promotions++
		if err := s.engage(ctx, res, models.PromotionKind, promo.Base(), promo.PromotionNumber, s.promotions.AddLike, users, opts); err != nil {
			return res, err
		}
	}
	s.logger.Info("seeded promotions", zap.Int("count", res.Promotions),
		zap.Int("likes", res.Likes), zap.Int("comments", res.Comments))

	return res, nil
}

func (s *Seeder) owner(users []*models.User) *models.User {
	return users[s.factory.faker.Number(0, len(users)-1)]
}

type likeFunc func(ctx context.Context, number int64, userID string) (bool, error)

func (s *Seeder) engage(ctx context.Context, res *Result, kind models.Kind, item *models.Item, number int64, like likeFunc, users []*models.User, opts Options) error {
	if opts.MaxLikes > 0 {
		for _, u := range s.factory.Pick(users, s.factory.faker.Number(0, opts.MaxLikes), item.UserID) {
			applied, err := like(ctx, number, u.ID)
			if err != nil {
				return fmt.Errorf("like %s %d: %w", kind.Name, number, err)
			}
			if applied {
				res.Likes++
			}
		}
	}

	for i := 0; i < opts.CommentsPerItem; i++ {
		author := s.owner(users)
		if err := s.comments.Create(ctx, s.factory.Comment(kind, item.ID, author.ID)); err != nil {
			return fmt.Errorf("comment on %s %d: %w", kind.Name, number, err)
		}
		res.Comments++
	}
	return nil
}
