// FILE: internal/controller/thread_controller.go
package controller

import (
	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/pkg/serverutils"
	"agent-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IThreadController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type threadController struct {
	threadService service.IThreadService
	chatService   service.IChatService
}

func NewThreadController(threadService service.IThreadService, chatService service.IChatService) IThreadController {
	return &threadController{
		threadService: threadService,
		chatService:   chatService,
	}
}

func (c *threadController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/thread/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id/history", c.History)
	h.Delete(":id", c.Delete)
}

func profileIDFromLocals(ctx *fiber.Ctx) (uuid.UUID, error) {
	idStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return id, nil
}

func (c *threadController) Create(ctx *fiber.Ctx) error {
	profileID, err := profileIDFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateThreadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.threadService.Create(ctx.Context(), profileID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Thread created", res))
}

func (c *threadController) List(ctx *fiber.Ctx) error {
	profileID, err := profileIDFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.threadService.List(ctx.Context(), profileID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Threads", res))
}

func (c *threadController) History(ctx *fiber.Ctx) error {
	profileID, err := profileIDFromLocals(ctx)
	if err != nil {
		return err
	}

	threadID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid thread id")
	}

	res, err := c.chatService.GetThreadHistory(ctx.Context(), profileID, threadID)
	if err != nil {
		if err == service.ErrThreadNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Thread not found")
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Thread history", res))
}

func (c *threadController) Delete(ctx *fiber.Ctx) error {
	profileID, err := profileIDFromLocals(ctx)
	if err != nil {
		return err
	}

	threadID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid thread id")
	}

	if err := c.threadService.Delete(ctx.Context(), profileID, threadID); err != nil {
		if err == service.ErrThreadNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Thread not found")
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Thread deleted", nil))
}
