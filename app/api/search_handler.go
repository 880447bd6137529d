package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"linkrag/search"
	"linkrag/types"
)

type SearchHandler struct {
	engine    *search.Engine
	limit     int
	threshold float64
}

func NewSearchHandler(engine *search.Engine, cfg types.Config) *SearchHandler {
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	threshold := cfg.SearchThreshold
	if threshold <= 0 {
		threshold = search.DefaultThreshold
	}
	return &SearchHandler{
		engine:    engine,
		limit:     limit,
		threshold: threshold,
	}
}

func (h SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var params types.SearchParams
	if err := c.BodyParser(&params); err != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = h.limit
	}
	threshold := h.threshold
	if params.Threshold != nil {
		threshold = *params.Threshold
	}

	results, err := h.engine.Search(c.Context(), params.Query, ownerID(c), limit, threshold)
	if err != nil {
		if errors.Is(err, types.ErrEmptyQuery) {
			return NewError(fiber.StatusBadRequest, err.Error())
		}
		var embErr *types.EmbeddingError
		if errors.As(err, &embErr) {
			return NewError(fiber.StatusBadGateway, embErr.Error())
		}
		return err
	}
	if results == nil {
		results = []types.SearchResult{}
	}

	return c.JSON(fiber.Map{
		"query":   params.Query,
		"count":   len(results),
		"results": results,
	})
}
