package handlers

import (
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

func (h *CommentHandler) List(c *fiber.Ctx) error {
	comments, err := h.comments.List(c.UserContext(), middleware.Actor(c), c.Params("issueId"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, comments, "")
}

func (h *CommentHandler) Add(c *fiber.Ctx) error {
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	comments, err := h.comments.Add(c.UserContext(), middleware.Actor(c), c.Params("issueId"), req.UserID, req.Comment)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, comments, "Comment added")
}

func (h *CommentHandler) Update(c *fiber.Ctx) error {
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	comment, err := h.comments.Update(c.UserContext(), middleware.Actor(c), c.Params("issueId"), c.Params("commentId"), req.Comment)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, comment, "Comment updated")
}

func (h *CommentHandler) Delete(c *fiber.Ctx) error {
	if err := h.comments.Delete(c.UserContext(), middleware.Actor(c), c.Params("issueId"), c.Params("commentId")); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, nil, "Comment deleted")
}
