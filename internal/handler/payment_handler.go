package handler

import (
	"errors"
	"fmt"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/service"
	"github.com/coasterpix/coasterpix-backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.uber.org/zap"
)

// WebhookProcessor consumes verified events; the handler owns verification.
type WebhookProcessor interface {
	HandleStripeWebhook(event *stripe.Event) error
}

type PaymentHandler struct {
	paymentService *service.PaymentService
	processor      WebhookProcessor
	webhookSecret  string
	validator      *utils.Validator
	logger         *zap.Logger
}

func NewPaymentHandler(
	paymentService *service.PaymentService,
	processor WebhookProcessor,
	webhookSecret string,
	validator *utils.Validator,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		processor:      processor,
		webhookSecret:  webhookSecret,
		validator:      validator,
		logger:         logger,
	}
}

func (h *PaymentHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	userIDRaw := c.Locals("userID")
	if userIDRaw == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}
	userID, ok := userIDRaw.(uint)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse("Invalid user ID format"))
	}

	var req models.CreateCheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	session, err := h.paymentService.CreateCheckoutSession(userID, req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(session, ""))
}

// HandleStripeWebhook is the event-delivery endpoint. The signature is
// checked against the exact raw bytes of the body; re-encoded payloads
// would not verify.
func (h *PaymentHandler) HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signatureHeader := c.Get("Stripe-Signature")

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, h.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		// Expected for tampered or replayed bodies; a 4xx stops retries.
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Webhook error: %v", err))
	}

	if err := h.processor.HandleStripeWebhook(&event); err != nil {
		h.logger.Error("webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"received": true})
}

// WebhookPreflight answers the provider's OPTIONS probe.
func (h *PaymentHandler) WebhookPreflight(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSessionStatus lets the client poll whether its checkout session has
// been fulfilled yet.
func (h *PaymentHandler) GetSessionStatus(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	fulfilled, err := h.paymentService.IsSessionFulfilled(userID, c.Params("sessionId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(fiber.Map{"fulfilled": fulfilled}, ""))
}

func (h *PaymentHandler) GetPurchaseHistory(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	purchases, err := h.paymentService.GetPurchaseHistory(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(purchases, ""))
}
