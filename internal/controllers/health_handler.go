package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/dto"
)

// ReadyCheck probes one dependency. Optional checks report "degraded" without failing readiness.
type ReadyCheck struct {
	Name     string
	Optional bool
	Probe    func(ctx context.Context) error
}

type HealthHandler struct {
	Checks []ReadyCheck
}

// Healthz godoc
// @Summary  Liveness probe
// @Tags     health
// @Produce  plain
// @Success  200  {string}  string  "ok"
// @Router   /healthz [get]
func (h *HealthHandler) Healthz(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// Ready godoc
// @Summary  Readiness probe
// @Tags     health
// @Produce  json
// @Success  200  {object}  dto.ReadyResp
// @Failure  503  {object}  dto.ReadyResp
// @Router   /api/ready [get]
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	resp := dto.ReadyResp{Status: "ok", Checks: map[string]string{}}
	status := fiber.StatusOK
	for _, chk := range h.Checks {
		err := chk.Probe(ctx)
		switch {
		case err == nil:
			resp.Checks[chk.Name] = "ok"
		case chk.Optional:
			resp.Checks[chk.Name] = "degraded"
		default:
			resp.Checks[chk.Name] = err.Error()
			resp.Status = "unavailable"
			status = fiber.StatusServiceUnavailable
		}
	}
	return c.Status(status).JSON(resp)
}
