package handlers

import (
	"net/http"
	"time"

	"game-server-tracker/configs"
	"game-server-tracker/internal/middleware"
	"game-server-tracker/internal/models"
	"game-server-tracker/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GameHandler struct {
	db *gorm.DB
}

func NewGameHandler(db *gorm.DB) *GameHandler {
	return &GameHandler{db: db}
}

// ListGames returns basic game information, either a single game by UUID or
// every game newer than the retention window, scoped to one partition.
func (h *GameHandler) ListGames(c *gin.Context) {
	auth := middleware.Auth(c)
	dev, err := resolveDev(c, auth)
	if err != nil {
		writeDevError(c, err)
		return
	}

	query := h.db.Model(&models.Game{}).Where("dev = ?", dev)

	if gameUUID := c.Query("game_uuid"); gameUUID != "" {
		if _, errParse := uuid.Parse(gameUUID); errParse != nil {
			response.Error(c, http.StatusBadRequest, "Invalid UUID")
			return
		}
		query = query.Where("game_uuid = ?", gameUUID)
	} else {
		cutoff := time.Now().AddDate(0, 0, -configs.AppConfig.GameMaxAge)
		query = query.Where("stamp > ?", cutoff)
	}

	var games []models.Game
	if errFind := query.Find(&games).Error; errFind != nil {
		storeFailure(c, errFind)
		return
	}
	if len(games) == 0 {
		response.Error(c, http.StatusNotFound, "No games found")
		return
	}

	results := make([]gin.H, 0, len(games))
	for _, game := range games {
		results = append(results, gin.H{
			"game_uuid": game.GameUUID,
			"stamp":     game.Stamp.Format(time.RFC3339),
		})
	}
	response.Results(c, results)
}
