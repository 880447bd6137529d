package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"linkrag/ingest"
	"linkrag/store"
	"linkrag/types"
)

type LinkHandler struct {
	logger  *slog.Logger
	store   store.Storer
	ingestr *ingest.Service
}

func NewLinkHandler(st store.Storer, svc *ingest.Service) *LinkHandler {
	return &LinkHandler{
		logger:  slog.Default(),
		store:   st,
		ingestr: svc,
	}
}

// HandleSubmitLink accepts a URL for ingestion. The link is stored as pending
// and handed to the background workers; the response does not wait for the
// fetch to complete.
func (h LinkHandler) HandleSubmitLink(c *fiber.Ctx) error {
	var params types.SubmitLinkParams
	if err := c.BodyParser(&params); err != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	link := types.Link{
		ID:          uuid.New(),
		URL:         params.URL,
		Title:       params.Title,
		Description: params.Description,
		Tags:        params.Tags,
		UserID:      ownerID(c),
		Status:      types.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.CreateLink(c.Context(), link); err != nil {
		return err
	}

	if !h.ingestr.Enqueue(link) {
		// stays pending; a full queue is backpressure, not an error
		h.logger.Warn("ingest queue full", "link_id", link.ID, "url", link.URL)
	}

	return c.Status(fiber.StatusCreated).JSON(link)
}

func (h LinkHandler) HandleGetLink(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}

	link, err := h.store.GetLink(c.Context(), id)
	if err != nil {
		if errors.Is(err, types.ErrLinkNotFound) {
			return ErrNotFound(id, "link")
		}
		return err
	}
	if owner := ownerID(c); owner != "" && link.UserID != owner {
		return ErrNotFound(id, "link")
	}

	return c.JSON(link)
}

func (h LinkHandler) HandleListLinks(c *fiber.Ctx) error {
	links, err := h.store.ListLinks(c.Context(), ownerID(c))
	if err != nil {
		return err
	}
	if links == nil {
		links = []types.Link{}
	}
	return c.JSON(links)
}

// HandleDeleteLink removes the link and its chunks. Deleting an unknown or
// already deleted link succeeds, the outcome is the same either way.
func (h LinkHandler) HandleDeleteLink(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}

	if owner := ownerID(c); owner != "" {
		link, err := h.store.GetLink(c.Context(), id)
		if err != nil {
			if errors.Is(err, types.ErrLinkNotFound) {
				return c.SendStatus(fiber.StatusNoContent)
			}
			return err
		}
		if link.UserID != owner {
			return c.SendStatus(fiber.StatusNoContent)
		}
	}

	if err := h.store.DeleteLink(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ownerID reads the caller identity header. An empty value means the request
// is unscoped.
func ownerID(c *fiber.Ctx) string {
	return c.Get("X-User-ID")
}
