package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/filters"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/relations"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const shoppingListFilename = "shopping_list.txt"

type RecipeHandler struct {
	recipes     *services.RecipeService
	defaultPage int
}

func NewRecipeHandler(recipes *services.RecipeService, defaultPage int) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, defaultPage: defaultPage}
}

func (h *RecipeHandler) List(c *fiber.Ctx) error {
	raw := filters.RawRecipeQuery{
		Author:           c.Query("author"),
		IsFavorited:      c.Query("is_favorited"),
		IsInShoppingCart: c.Query("is_in_shopping_cart"),
	}
	for _, v := range c.Context().QueryArgs().PeekMulti("tags") {
		raw.Tags = append(raw.Tags, string(v))
	}

	crit, err := h.recipes.CleanCriteria(c.UserContext(), raw)
	if err != nil {
		return respondError(c, err)
	}

	page := pageRequest(c, h.defaultPage)
	items, total, err := h.recipes.List(c.UserContext(), middleware.GetViewer(c), crit, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPage(c, page, total, items))
}

func (h *RecipeHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	recipe, err := h.recipes.Get(c.UserContext(), middleware.GetViewer(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(recipe)
}

func (h *RecipeHandler) Create(c *fiber.Ctx) error {
	var req dto.RecipeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	recipe, err := h.recipes.Create(c.UserContext(), middleware.GetViewer(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(recipe)
}

func (h *RecipeHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	var req dto.RecipeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	recipe, err := h.recipes.Update(c.UserContext(), middleware.GetViewer(c), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(recipe)
}

func (h *RecipeHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	if err := h.recipes.Delete(c.UserContext(), middleware.GetViewer(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *fiber.Ctx) error {
	return h.add(c, h.recipes.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *fiber.Ctx) error {
	return h.remove(c, h.recipes.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *fiber.Ctx) error {
	return h.add(c, h.recipes.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *fiber.Ctx) error {
	return h.remove(c, h.recipes.RemoveFromCart)
}

func (h *RecipeHandler) DownloadShoppingCart(c *fiber.Ctx) error {
	items, err := h.recipes.ShoppingList(c.UserContext(), middleware.GetViewer(c))
	if err != nil {
		return respondError(c, err)
	}
	c.Attachment(shoppingListFilename)
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(services.FormatShoppingList(items))
}

type addFunc func(ctx context.Context, viewer relations.Viewer, recipeID uint) (*dto.RecipeShortResponse, error)

type removeFunc func(ctx context.Context, viewer relations.Viewer, recipeID uint) error

func (h *RecipeHandler) add(c *fiber.Ctx, fn addFunc) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	short, err := fn(c.UserContext(), middleware.GetViewer(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(short)
}

func (h *RecipeHandler) remove(c *fiber.Ctx, fn removeFunc) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	if err := fn(c.UserContext(), middleware.GetViewer(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
