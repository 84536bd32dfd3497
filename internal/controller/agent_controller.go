// FILE: internal/controller/agent_controller.go
package controller

import (
	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/pkg/serverutils"
	"agent-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAgentController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type agentController struct {
	agentService service.IAgentService
}

func NewAgentController(agentService service.IAgentService) IAgentController {
	return &agentController{agentService: agentService}
}

func (c *agentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/agent/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
}

func (c *agentController) Create(ctx *fiber.Ctx) error {
	profileID, err := profileIDFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateAgentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.agentService.Create(ctx.Context(), profileID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Agent created", res))
}

func (c *agentController) Show(ctx *fiber.Ctx) error {
	profileID, err := profileIDFromLocals(ctx)
	if err != nil {
		return err
	}

	agentID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid agent id")
	}

	res, err := c.agentService.Show(ctx.Context(), profileID, agentID)
	if err != nil {
		if err == service.ErrAgentNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Agent not found")
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Agent", res))
}

func (c *agentController) List(ctx *fiber.Ctx) error {
	profileID, err := profileIDFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.agentService.List(ctx.Context(), profileID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Agents", res))
}

func (c *agentController) Update(ctx *fiber.Ctx) error {
	profileID, err := profileIDFromLocals(ctx)
	if err != nil {
		return err
	}

	agentID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid agent id")
	}

	var req dto.UpdateAgentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.agentService.Update(ctx.Context(), profileID, agentID, &req)
	if err != nil {
		if err == service.ErrAgentNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Agent not found")
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Agent updated", res))
}

func (c *agentController) Delete(ctx *fiber.Ctx) error {
	profileID, err := profileIDFromLocals(ctx)
	if err != nil {
		return err
	}

	agentID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid agent id")
	}

	if err := c.agentService.Delete(ctx.Context(), profileID, agentID); err != nil {
		if err == service.ErrAgentNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Agent not found")
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Agent deleted", nil))
}
