package handlers

import (
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/filters"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves tags and ingredients. Neither list is paginated.
type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) Tags(c *fiber.Ctx) error {
	tags, err := h.catalog.Tags(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

func (h *CatalogHandler) Tag(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	tag, err := h.catalog.Tag(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tag)
}

func (h *CatalogHandler) Ingredients(c *fiber.Ctx) error {
	items, err := h.catalog.Ingredients(c.UserContext(), filters.IngredientFilter{Name: c.Query("name")})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

func (h *CatalogHandler) Ingredient(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	item, err := h.catalog.Ingredient(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *CatalogHandler) CreateTag(c *fiber.Ctx) error {
	var req dto.TagRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	tag, err := h.catalog.CreateTag(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

func (h *CatalogHandler) CreateIngredient(c *fiber.Ctx) error {
	var req dto.IngredientRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	item, err := h.catalog.CreateIngredient(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}
