package handlers

import (
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// UserHandler serves /users. Its responses are bare objects rather than envelopes.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBareBody(c)
	}
	user, session, err := h.users.Login(c.UserContext(), &req)
	if err != nil {
		return failBare(c, err)
	}
	return c.JSON(dto.LoginResponse{
		Message:      "Login successful",
		ID:           user.ID,
		UID:          session.UID,
		IDToken:      session.IDToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
	})
}

func (h *UserHandler) Logout(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.MessageResponse{Message: "Unauthorized"})
	}
	if err := h.users.Logout(c.UserContext(), user.UID); err != nil {
		return failBare(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Logout successful. Tokens revoked."})
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badBareBody(c)
	}
	user, err := h.users.Create(c.UserContext(), &req)
	if err != nil {
		return failBare(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CreateUserResponse{
		Message: "User created",
		User:    user,
	})
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext(), middleware.Actor(c))
	if err != nil {
		return failBare(c, err)
	}
	return c.JSON(users)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return failBare(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badBareBody(c)
	}
	user, err := h.users.Update(c.UserContext(), middleware.Actor(c), c.Params("id"), &req)
	if err != nil {
		return failBare(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), middleware.Actor(c), c.Params("id")); err != nil {
		return failBare(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "User successfully deleted"})
}

func badBareBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.MessageResponse{Message: "Invalid request body"})
}
