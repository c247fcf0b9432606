package handlers

import (
	"net/url"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

func pageRequest(c *fiber.Ctx, defaultLimit int) dto.PageRequest {
	return dto.NewPageRequest(c.QueryInt("page", 1), c.QueryInt("limit", defaultLimit), defaultLimit)
}

// newPage wraps results with links to the neighbouring pages. Other query
// parameters are carried over unchanged.
func newPage[T any](c *fiber.Ctx, req dto.PageRequest, total int64, results []T) dto.Page[T] {
	if results == nil {
		results = []T{}
	}
	page := dto.Page[T]{Count: total, Results: results}
	if req.HasNext(total) {
		page.Next = pageURL(c, req.Page+1)
	}
	if req.Page > 1 {
		page.Previous = pageURL(c, req.Page-1)
	}
	return page
}

func pageURL(c *fiber.Ctx, n int) *string {
	q, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		q = url.Values{}
	}
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	link := c.BaseURL() + c.Path()
	if encoded := q.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return &link
}
