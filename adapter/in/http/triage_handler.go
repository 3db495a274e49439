package http

import (
	"github.com/gofiber/fiber/v2"

	"triage_server/core/port/out"
	"triage_server/pkg/logger"
)

// TriageHandler enqueues classification and routing jobs for tickets.
type TriageHandler struct {
	tickets  out.TicketStore
	producer out.JobProducer
}

func NewTriageHandler(tickets out.TicketStore, producer out.JobProducer) *TriageHandler {
	return &TriageHandler{tickets: tickets, producer: producer}
}

func (h *TriageHandler) Register(app *fiber.App) {
	app.Post("/tickets/:id/classify", h.EnqueueClassify)
	app.Post("/tickets/:id/route", h.EnqueueRoute)
}

type enqueueRequest struct {
	TenantID string `json:"tenantId"`
}

func (h *TriageHandler) EnqueueClassify(c *fiber.Ctx) error {
	ticketID := c.Params("id")

	var req enqueueRequest
	if err := c.BodyParser(&req); err != nil || req.TenantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenantId is required",
		})
	}

	ticket, err := h.tickets.GetTicket(c.Context(), req.TenantID, ticketID)
	if err != nil {
		logger.WithError(err).WithTicket(req.TenantID, ticketID).Error("ticket lookup failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "ticket lookup failed",
		})
	}
	if ticket == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "ticket not found",
		})
	}

	job := &out.ClassifyJob{
		TicketID: ticket.ID,
		TenantID: ticket.TenantID,
		Subject:  ticket.Subject,
		Body:     ticket.Body,
	}
	if err := h.producer.PublishClassify(c.Context(), job); err != nil {
		logger.WithError(err).WithTicket(req.TenantID, ticketID).Error("failed to enqueue classify job")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "queue unavailable",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":   "queued",
		"ticketId": ticket.ID,
	})
}

func (h *TriageHandler) EnqueueRoute(c *fiber.Ctx) error {
	ticketID := c.Params("id")

	var req enqueueRequest
	if err := c.BodyParser(&req); err != nil || req.TenantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenantId is required",
		})
	}

	ticket, err := h.tickets.GetTicket(c.Context(), req.TenantID, ticketID)
	if err != nil {
		logger.WithError(err).WithTicket(req.TenantID, ticketID).Error("ticket lookup failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "ticket lookup failed",
		})
	}
	if ticket == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "ticket not found",
		})
	}

	job := &out.RouteJob{TicketID: ticket.ID, TenantID: ticket.TenantID}
	if err := h.producer.PublishRoute(c.Context(), job); err != nil {
		logger.WithError(err).WithTicket(req.TenantID, ticketID).Error("failed to enqueue route job")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "queue unavailable",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":   "queued",
		"ticketId": ticket.ID,
	})
}
