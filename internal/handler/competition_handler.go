package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/wecubehq/wecube-backend/internal/wca"
)

type CompetitionHandler struct {
	directory *wca.Directory
}

func NewCompetitionHandler(directory *wca.Directory) *CompetitionHandler {
	return &CompetitionHandler{directory: directory}
}

// List returns upcoming competitions, optionally narrowed by a query.
func (h *CompetitionHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	query := c.QueryParam("q")

	var (
		comps []wca.Competition
		err   error
	)
	if query != "" {
		comps, err = h.directory.Search(c.Request().Context(), query, limit)
	} else {
		comps, err = h.directory.Upcoming(c.Request().Context(), limit)
	}
	if err != nil {
		return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_unavailable", "failed to fetch competitions"))
	}
	return c.JSON(http.StatusOK, comps)
}
