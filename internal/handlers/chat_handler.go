package handlers

import (
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chats *services.ChatService
}

func NewChatHandler(chats *services.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// Ask answers with 201 for a fresh answer and 200 for a cached one.
func (h *ChatHandler) Ask(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	chat, created, err := h.chats.Answer(c.UserContext(), req.UserID, req.Question)
	if err != nil {
		return fail(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return ok(c, status, chat, "")
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	chats, err := h.chats.History(c.UserContext(), c.Params("userId"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, chats, "")
}
