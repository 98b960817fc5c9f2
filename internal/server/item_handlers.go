package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/teeny-box/teenybox-server/internal/middleware"
	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/service"
	"github.com/teeny-box/teenybox-server/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// ItemService is the service surface the item routes need.
type ItemService[P any] interface {
	Kind() models.Kind
	Create(ctx context.Context, userID string, in service.WriteInput) (P, error)
	Update(ctx context.Context, number int64, userID string, in service.WriteInput) (P, error)
	Get(ctx context.Context, number int64, view bool) (P, error)
	List(ctx context.Context, in service.ListInput) (*service.Page[P], error)
	ListByUser(ctx context.Context, userID string, in service.ListInput) (*service.Page[P], error)
	Search(ctx context.Context, in service.ListInput) (*service.Page[P], error)
	Delete(ctx context.Context, number int64, userID string) (P, error)
	DeleteMany(ctx context.Context, numbers []int64, userID string) (int64, error)
	Like(ctx context.Context, number int64, userID string) (P, error)
	Unlike(ctx context.Context, number int64, userID string) (P, error)
}

// itemHandlers serves one content kind. Posts and promotions mount the same
// handlers under their own prefix.
type itemHandlers[P any] struct {
	svc  ItemService[P]
	kind models.Kind
}

func newItemHandlers[P any](svc ItemService[P]) *itemHandlers[P] {
	return &itemHandlers[P]{svc: svc, kind: svc.Kind()}
}

func authed(handlers ...fiber.Handler) []fiber.Handler {
	return append([]fiber.Handler{middleware.AuthRequired, middleware.ContextMiddleware()}, handlers...)
}

// register mounts the kind's routes. Literal segments go before /:number.
func (h *itemHandlers[P]) register(router fiber.Router, rdb *redis.Client) {
	g := router.Group("/" + h.kind.Plural)

	g.Post("/", authed(middleware.RateLimit(rdb, 10, time.Minute, "create_"+h.kind.Name), h.Create)...)
	g.Get("/", h.List)
	g.Get("/search", h.Search)
	g.Get("/user/:userId", h.ListByUser)
	g.Delete("/bulk", authed(h.DeleteMany)...)

	g.Get("/:number", h.Get)
	g.Put("/:number", authed(h.Update)...)
	g.Delete("/:number", authed(h.Delete)...)
	g.Post("/:number/like", authed(middleware.RateLimit(rdb, 60, time.Minute, "like_"+h.kind.Name), h.Like)...)
	g.Delete("/:number/like", authed(h.Unlike)...)
}

// writeInput validates the body against schema and decodes it.
func (h *itemHandlers[P]) writeInput(c *fiber.Ctx, schema string) (service.WriteInput, error) {
	body := append([]byte(nil), c.Body()...)
	if err := validation.Validate(body, schema); err != nil {
		return service.WriteInput{}, err
	}
	var in service.WriteInput
	if err := json.Unmarshal(body, &in); err != nil {
		return service.WriteInput{}, models.NewValidationError("malformed JSON body", err.Error())
	}
	in.Body = body
	return in, nil
}

func listInput(c *fiber.Ctx, defaultLimit int) service.ListInput {
	page := parsePagination(c, defaultLimit)
	return service.ListInput{
		Page:      page.Page,
		Limit:     page.Limit,
		SortBy:    c.Query("sortBy", defaultSortBy),
		SortOrder: c.Query("sortOrder"),
		Category:  c.Query("category"),
		IsFixed:   c.Query("isFixed"),
	}
}

func (h *itemHandlers[P]) respondPage(c *fiber.Ctx, page *service.Page[P]) error {
	items := page.Items
	if items == nil {
		items = []P{}
	}
	return c.JSON(fiber.Map{
		h.kind.Plural: items,
		"totalCount":  page.TotalCount,
	})
}

// Create handles POST /api/{kind}
func (h *itemHandlers[P]) Create(c *fiber.Ctx) error {
	in, err := h.writeInput(c, validation.CreateSchema(h.kind))
	if err != nil {
		return respondError(c, err)
	}

	item, err := h.svc.Create(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// Update handles PUT /api/{kind}/:number
func (h *itemHandlers[P]) Update(c *fiber.Ctx) error {
	number, err := parseNumber(c, h.kind, "number")
	if err != nil {
		return nil
	}
	in, err := h.writeInput(c, validation.UpdateSchema(h.kind))
	if err != nil {
		return respondError(c, err)
	}

	item, err := h.svc.Update(c.UserContext(), number, middleware.UserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// List handles GET /api/{kind}
func (h *itemHandlers[P]) List(c *fiber.Ctx) error {
	page, err := h.svc.List(c.UserContext(), listInput(c, listDefaultLimit))
	if err != nil {
		return respondError(c, err)
	}
	return h.respondPage(c, page)
}

// Search handles GET /api/{kind}/search?type=...&query=...
func (h *itemHandlers[P]) Search(c *fiber.Ctx) error {
	in := listInput(c, searchDefaultLimit)
	in.Category, in.IsFixed = "", ""
	in.SearchType = c.Query("type")
	in.Query = c.Query("query")

	page, err := h.svc.Search(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondPage(c, page)
}

// ListByUser handles GET /api/{kind}/user/:userId
func (h *itemHandlers[P]) ListByUser(c *fiber.Ctx) error {
	in := listInput(c, listDefaultLimit)
	in.Category, in.IsFixed = "", ""

	page, err := h.svc.ListByUser(c.UserContext(), c.Params("userId"), in)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondPage(c, page)
}

// Get handles GET /api/{kind}/:number; usage=view counts a view.
func (h *itemHandlers[P]) Get(c *fiber.Ctx) error {
	number, err := parseNumber(c, h.kind, "number")
	if err != nil {
		return nil
	}

	item, err := h.svc.Get(c.UserContext(), number, c.Query("usage") == "view")
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// Delete handles DELETE /api/{kind}/:number
func (h *itemHandlers[P]) Delete(c *fiber.Ctx) error {
	number, err := parseNumber(c, h.kind, "number")
	if err != nil {
		return nil
	}

	item, err := h.svc.Delete(c.UserContext(), number, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// DeleteMany handles DELETE /api/{kind}/bulk
func (h *itemHandlers[P]) DeleteMany(c *fiber.Ctx) error {
	numbers, err := validation.BulkNumbers(h.kind, c.Body())
	if err != nil {
		return respondError(c, err)
	}

	deleted, err := h.svc.DeleteMany(c.UserContext(), numbers, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

// Like handles POST /api/{kind}/:number/like
func (h *itemHandlers[P]) Like(c *fiber.Ctx) error {
	number, err := parseNumber(c, h.kind, "number")
	if err != nil {
		return nil
	}

	item, err := h.svc.Like(c.UserContext(), number, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// Unlike handles DELETE /api/{kind}/:number/like
func (h *itemHandlers[P]) Unlike(c *fiber.Ctx) error {
	number, err := parseNumber(c, h.kind, "number")
	if err != nil {
		return nil
	}

	item, err := h.svc.Unlike(c.UserContext(), number, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}
