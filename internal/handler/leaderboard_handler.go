package handler

import (
	"strconv"
	"time"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

func (h *LeaderboardHandler) GetDayLeaderboard(c *fiber.Ctx) error {
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

	rows, err := h.leaderboardService.TopForDay(uint(parkID), day)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(rows, ""))
}
