package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/service"
	"github.com/coasterpix/coasterpix-backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type PhotoHandler struct {
	photoService *service.PhotoService
	validator    *utils.Validator
}

func NewPhotoHandler(photoService *service.PhotoService, validator *utils.Validator) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
		validator:    validator,
	}
}

// IngestCapture receives a photo from a park capture point (multipart:
// file + metadata fields). Protected by the capture-key middleware, not
// visitor auth.
func (h *PhotoHandler) IngestCapture(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("file is required"))
	}

	parkID, err := strconv.ParseUint(c.FormValue("park_id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("invalid park_id"))
	}

	req := models.IngestPhotoRequest{
		ParkID:       uint(parkID),
		CapturePoint: c.FormValue("capture_point"),
		CapturedAt:   c.FormValue("captured_at"),
	}
	if raw := c.FormValue("speed_kmh"); raw != "" {
		if speed, err := strconv.ParseFloat(raw, 64); err == nil {
			req.SpeedKmh = &speed
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	photo, err := h.photoService.IngestCapture(req, file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(photo, ""))
}

func (h *PhotoHandler) BrowseDay(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	parkID, err := strconv.ParseUint(c.Params("parkId"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("invalid park id"))
	}

	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		day, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("invalid date, expected YYYY-MM-DD"))
		}
	}

	photos, err := h.photoService.BrowseDay(userID, uint(parkID), day)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(photos, ""))
}

func (h *PhotoHandler) GetUnlockedPhotos(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	photos, err := h.photoService.GetUnlockedPhotos(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(photos, ""))
}

func (h *PhotoHandler) GetDownloadURL(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	photoID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("invalid photo id"))
	}

	url, err := h.photoService.DownloadURL(userID, uint(photoID))
	if err != nil {
		if errors.Is(err, service.ErrPhotoLocked) {
			return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse(err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(fiber.Map{"url": url}, ""))
}
