package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"game-server-tracker/configs"
	"game-server-tracker/internal/database"
	"game-server-tracker/internal/middleware"
	"game-server-tracker/internal/models"
	"game-server-tracker/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlayerHandler struct {
	db *gorm.DB
}

func NewPlayerHandler(db *gorm.DB) *PlayerHandler {
	return &PlayerHandler{db: db}
}

type AddPlayerRequest struct {
	GameUUID string          `json:"game_uuid" binding:"required"`
	Meta     json.RawMessage `json:"meta"`
}

// ListPlayers shows players and their data. Targeted lookups (by player id
// or game) include the metadata blob; the recency listing deliberately
// returns identity only.
func (h *PlayerHandler) ListPlayers(c *gin.Context) {
	auth := middleware.Auth(c)
	dev, err := resolveDev(c, auth)
	if err != nil {
		writeDevError(c, err)
		return
	}

	var players []models.GamePlayer
	withMeta := true

	if idStr := c.Query("game_player_id"); idStr != "" {
		id, errParse := strconv.ParseUint(idStr, 10, 64)
		if errParse != nil {
			response.Error(c, http.StatusBadRequest, "Invalid game_player_id")
			return
		}
		if errFind := h.db.Where("game_player_id = ?", id).Find(&players).Error; errFind != nil {
			storeFailure(c, errFind)
			return
		}
	} else if gameUUID := c.Query("game_uuid"); gameUUID != "" {
		if _, errParse := uuid.Parse(gameUUID); errParse != nil {
			response.Error(c, http.StatusBadRequest, "Invalid UUID")
			return
		}
		if errFind := h.db.Where("game_uuid = ?", gameUUID).Find(&players).Error; errFind != nil {
			storeFailure(c, errFind)
			return
		}
	} else {
		withMeta = false
		cutoff := time.Now().AddDate(0, 0, -configs.AppConfig.GameMaxAge)
		errFind := h.db.Model(&models.GamePlayer{}).
			Select("game_player.game_player_id, game_player.game_uuid").
			Joins("JOIN game ON game.game_uuid = game_player.game_uuid").
			Where("game.stamp > ? AND game.dev = ?", cutoff, dev).
			Find(&players).Error
		if errFind != nil {
			storeFailure(c, errFind)
			return
		}
	}

	if len(players) == 0 {
		response.Error(c, http.StatusNotFound, "No players found.")
		return
	}

	results := make([]gin.H, 0, len(players))
	for _, player := range players {
		entry := gin.H{
			"game_player_id": player.GamePlayerID,
			"game_uuid":      player.GameUUID,
		}
		if withMeta {
			entry["meta"] = json.RawMessage(player.Meta)
		}
		results = append(results, entry)
	}
	response.Results(c, results)
}

// AddPlayer records a player-join event for an existing game. The all-zero
// UUID is rejected before the store is touched; a foreign key violation
// means the game does not exist and is the caller's fault.
func (h *PlayerHandler) AddPlayer(c *gin.Context) {
	var req AddPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	parsed, err := uuid.Parse(req.GameUUID)
	if err != nil || parsed == uuid.Nil {
		response.Error(c, http.StatusBadRequest, "Invalid UUID")
		return
	}

	txn, err := database.Begin(h.db)
	if err != nil {
		storeFailure(c, err)
		return
	}
	defer txn.Close()

	player := models.GamePlayer{
		GameUUID: req.GameUUID,
		Meta:     datatypes.JSON(req.Meta),
	}
	if errCreate := txn.DB().Create(&player).Error; errCreate != nil {
		txn.Rollback()
		if database.IsForeignKeyViolation(errCreate) {
			response.Error(c, http.StatusBadRequest, "Invalid game_uuid provided")
			return
		}
		storeFailure(c, errCreate)
		return
	}

	if errCommit := txn.Commit(); errCommit != nil {
		storeFailure(c, errCommit)
		return
	}

	response.Results(c, []gin.H{{
		"game_uuid":      player.GameUUID,
		"game_player_id": player.GamePlayerID,
	}})
}
