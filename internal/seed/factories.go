// Package seed provides helpers to create demo data for development and
// testing. It writes through the repositories, so it works on every storage
// backend.
package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/teeny-box/teenybox-server/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/lib/pq"
)

// Factory builds domain entities with fake content. It never persists.
type Factory struct {
	faker *gofakeit.Faker
	// MaxDays bounds how far back created_at is spread.
	MaxDays int
}

// NewFactory returns a Factory; the same seed yields the same data.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed), MaxDays: 90}
}

func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.faker.Number(0, f.MaxDays*24*60)) * time.Minute
	return time.Now().UTC().Add(-back).Truncate(time.Millisecond)
}

func (f *Factory) title() string {
	t := []rune(strings.TrimSuffix(f.faker.Sentence(4), "."))
	if len(t) > 40 {
		t = t[:40]
	}
	return string(t)
}

func (f *Factory) tags() pq.StringArray {
	n := f.faker.Number(0, 3)
	tags := make(pq.StringArray, 0, n)
	for i := 0; i < n; i++ {
		tags = append(tags, f.faker.Word())
	}
	return tags
}

// User builds a plain user.
func (f *Factory) User(overrides ...func(*models.User)) *models.User {
	ts := f.createdAt()
	user := &models.User{
		ID:         f.faker.UUID(),
		Nickname:   f.faker.Username(),
		ProfileURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		State:      "active",
		Role:       models.RoleUser,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

func (f *Factory) item(owner *models.User, categories []string) models.Item {
	ts := f.createdAt()
	pin := models.PinNormal
	if owner.IsAdmin() && f.faker.Number(1, 5) == 1 {
		pin = models.PinFixed
	}
	return models.Item{
		UserID:     owner.ID,
		Title:      f.title(),
		Content:    f.faker.Paragraph(1, 3, 12, "\n"),
		Tags:       f.tags(),
		Category:   f.faker.RandomString(categories),
		IsFixed:    pin,
		Views:      int64(f.faker.Number(0, 500)),
		LikedUsers: pq.StringArray{},
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// Post builds a post owned by owner.
func (f *Factory) Post(owner *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{Item: f.item(owner, models.PostKind.Categories)}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// Promotion builds a promotion owned by owner running for one to four weeks.
func (f *Factory) Promotion(owner *models.User, overrides ...func(*models.Promotion)) *models.Promotion {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, f.faker.Number(-30, 30))
	promo := &models.Promotion{
		Item:      f.item(owner, models.PromotionKind.Categories),
		ImageURL:  pq.StringArray{fmt.Sprintf("https://picsum.photos/seed/%s/800/1200", f.faker.UUID())},
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 7*f.faker.Number(1, 4)),
		PlayTitle: f.title(),
		Runtime:   f.faker.Number(60, 180),
		Location:  f.faker.City(),
		Host:      f.faker.Company(),
	}
	for _, override := range overrides {
		override(promo)
	}
	return promo
}

// Comment builds a comment on an item.
func (f *Factory) Comment(kind models.Kind, itemID, userID string) *models.Comment {
	ts := f.createdAt()
	return &models.Comment{
		ID:        f.faker.UUID(),
		ItemKind:  kind.Name,
		ItemID:    itemID,
		UserID:    userID,
		Content:   f.faker.Sentence(8),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Pick returns up to n distinct users, never including skip.
func (f *Factory) Pick(users []*models.User, n int, skip string) []*models.User {
	picked := make([]*models.User, 0, n)
	for _, i := range f.faker.Rand.Perm(len(users)) {
		if len(picked) == n {
			break
		}
		if users[i].ID != skip {
			picked = append(picked, users[i])
		}
	}
	return picked
}
