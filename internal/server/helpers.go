package server

import (
	"errors"

	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Default page sizes. A non-positive limit means every match.
const (
	listDefaultLimit   = -1
	searchDefaultLimit = 10
	defaultSortBy      = "time"
)

// Pagination holds parsed page/limit query parameters.
type Pagination struct {
	Page  int
	Limit int
}

// parsePagination reads page and limit. Unparseable values fall back to the
// defaults; pages start at 1.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	return Pagination{
		Page:  page,
		Limit: c.QueryInt("limit", defaultLimit),
	}
}

// parseNumber extracts a route parameter as a positive item number.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseNumber(c *fiber.Ctx, kind models.Kind, param string) (int64, error) {
	n, err := c.ParamsInt(param)
	if err != nil || n <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+kind.Name+" number"))
		return 0, errResponseWritten
	}
	return int64(n), nil
}

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		observability.L(c.UserContext()).Error("request failed",
			zap.String("path", c.Path()), zap.Error(err))
	}
	return models.RespondWithError(c, status, err)
}
