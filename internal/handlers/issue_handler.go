package handlers

import (
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type IssueHandler struct {
	issues *services.IssueService
}

func NewIssueHandler(issues *services.IssueService) *IssueHandler {
	return &IssueHandler{issues: issues}
}

func (h *IssueHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	issue, err := h.issues.Create(c.UserContext(), middleware.Actor(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, issue, "")
}

func (h *IssueHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	issue, err := h.issues.Update(c.UserContext(), middleware.Actor(c), c.Params("id"), &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, issue, "")
}

func (h *IssueHandler) Delete(c *fiber.Ctx) error {
	if err := h.issues.Delete(c.UserContext(), middleware.Actor(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, nil, "Issue deleted successfully")
}

func (h *IssueHandler) List(c *fiber.Ctx) error {
	issues, err := h.issues.ListAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, issues, "")
}

func (h *IssueHandler) ByLocation(c *fiber.Ctx) error {
	issues, err := h.issues.ListByLocation(c.UserContext(), c.Params("location"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, issues, "")
}

func (h *IssueHandler) ByReporter(c *fiber.Ctx) error {
	issues, err := h.issues.ListByReporter(c.UserContext(), c.Query("userId"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, issues, "")
}

func (h *IssueHandler) ByStatus(c *fiber.Ctx) error {
	issues, err := h.issues.ListByStatus(c.UserContext(), c.Params("status"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, issues, "")
}

func (h *IssueHandler) ByFlag(c *fiber.Ctx) error {
	issues, err := h.issues.ListByFlag(c.UserContext(), middleware.Actor(c), c.Params("flagType"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, issues, "")
}
