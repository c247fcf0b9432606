package handlers

import (
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/relations"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	users       *services.UserService
	follows     *services.FollowService
	defaultPage int
}

func NewUserHandler(users *services.UserService, follows *services.FollowService, defaultPage int) *UserHandler {
	return &UserHandler{users: users, follows: follows, defaultPage: defaultPage}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	page := pageRequest(c, h.defaultPage)
	users, total, err := h.users.List(c.UserContext(), middleware.GetViewer(c), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPage(c, page, total, users))
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	user, err := h.users.Get(c.UserContext(), middleware.GetViewer(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	viewer := middleware.GetViewer(c)
	user, err := h.users.Get(c.UserContext(), viewer, viewer.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) Subscriptions(c *fiber.Ctx) error {
	limit, err := relations.ParseRecipesLimit(c.Query("recipes_limit"))
	if err != nil {
		return respondError(c, err)
	}
	page := pageRequest(c, h.defaultPage)
	authors, total, err := h.follows.Subscriptions(c.UserContext(), middleware.GetViewer(c), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPage(c, page, total, authors))
}

func (h *UserHandler) Subscribe(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	limit, err := relations.ParseRecipesLimit(c.Query("recipes_limit"))
	if err != nil {
		return respondError(c, err)
	}
	author, err := h.follows.Follow(c.UserContext(), middleware.GetViewer(c), id, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(author)
}

func (h *UserHandler) Unsubscribe(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return notFound(c)
	}
	if err := h.follows.Unfollow(c.UserContext(), middleware.GetViewer(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
