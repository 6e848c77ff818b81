package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"game-server-tracker/configs"
	"game-server-tracker/internal/cache"
	"game-server-tracker/internal/database"
	"game-server-tracker/internal/middleware"
	"game-server-tracker/internal/models"
	"game-server-tracker/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LeaderboardHandler struct {
	db    *gorm.DB
	cache *cache.Manager
}

func NewLeaderboardHandler(db *gorm.DB, cacheMgr *cache.Manager) *LeaderboardHandler {
	return &LeaderboardHandler{db: db, cache: cacheMgr}
}

type StatsRequest struct {
	GamePlayerID uint `json:"game_player_id" binding:"required"`
	Kills        *int `json:"kills" binding:"required"`
	Deaths       *int `json:"deaths" binding:"required"`
}

type RegisterKillRequest struct {
	AliveGamePlayerID uint `json:"alive_game_player_id"`
	DeadGamePlayerID  uint `json:"dead_game_player_id"`
}

type aggregateRow struct {
	GamePlayerID uint  `gorm:"column:game_player_id" json:"game_player_id"`
	Kills        int64 `gorm:"column:kills" json:"kills"`
	Deaths       int64 `gorm:"column:deaths" json:"deaths"`
}

func playerAggregateKey(gamePlayerID uint) string {
	return fmt.Sprintf("leaderboard:player:%d", gamePlayerID)
}

// GetLeaderboard returns summed kill/death totals selected by player, game
// or leaderboard entry. The unfiltered aggregate view is not implemented.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	auth := middleware.Auth(c)
	if _, err := resolveDev(c, auth); err != nil {
		writeDevError(c, err)
		return
	}

	var rows []aggregateRow

	if idStr := c.Query("game_player_id"); idStr != "" {
		id, errParse := strconv.ParseUint(idStr, 10, 64)
		if errParse != nil {
			response.Error(c, http.StatusBadRequest, "Invalid game_player_id")
			return
		}

		cacheKey := playerAggregateKey(uint(id))
		if found, errGet := h.cache.Get(cacheKey, &rows); found && errGet == nil && len(rows) > 0 {
			response.Results(c, rows)
			return
		}

		errFind := h.db.Model(&models.GamePlayer{}).
			Select("game_player.game_player_id AS game_player_id, COALESCE(SUM(leaderboard.kills), 0) AS kills, COALESCE(SUM(leaderboard.deaths), 0) AS deaths").
			Joins("LEFT JOIN leaderboard ON leaderboard.game_player_id = game_player.game_player_id").
			Where("game_player.game_player_id = ?", id).
			Group("game_player.game_player_id").
			Scan(&rows).Error
		if errFind != nil {
			storeFailure(c, errFind)
			return
		}
		if len(rows) > 0 {
			h.cache.Set(cacheKey, rows, configs.AppConfig.CacheTTL)
		}
	} else if gameUUID := c.Query("game_uuid"); gameUUID != "" {
		if _, errParse := uuid.Parse(gameUUID); errParse != nil {
			response.Error(c, http.StatusBadRequest, "Invalid UUID")
			return
		}
		errFind := h.db.Model(&models.GamePlayer{}).
			Select("game_player.game_player_id AS game_player_id, COALESCE(SUM(leaderboard.kills), 0) AS kills, COALESCE(SUM(leaderboard.deaths), 0) AS deaths").
			Joins("LEFT JOIN leaderboard ON leaderboard.game_player_id = game_player.game_player_id").
			Where("game_player.game_uuid = ?", gameUUID).
			Group("game_player.game_player_id").
			Scan(&rows).Error
		if errFind != nil {
			storeFailure(c, errFind)
			return
		}
	} else if lbStr := c.Query("leaderboard_id"); lbStr != "" {
		id, errParse := strconv.ParseUint(lbStr, 10, 64)
		if errParse != nil {
			response.Error(c, http.StatusBadRequest, "Invalid leaderboard_id")
			return
		}
		errFind := h.db.Model(&models.LeaderboardEntry{}).
			Select("game_player_id, SUM(kills) AS kills, SUM(deaths) AS deaths").
			Where("leaderboard_id = ?", id).
			Group("game_player_id").
			Scan(&rows).Error
		if errFind != nil {
			storeFailure(c, errFind)
			return
		}
	} else {
		response.Error(c, http.StatusNotImplemented, "Aggregate leaderboard not yet implemented. For now, at least one parameter must be specified.")
		return
	}

	if len(rows) == 0 {
		response.Error(c, http.StatusNotFound, "No leaderboard entries found.")
		return
	}
	response.Results(c, rows)
}

// AddStats appends one raw kill/death fact for a player.
func (h *LeaderboardHandler) AddStats(c *gin.Context) {
	var req StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if *req.Kills < 0 || *req.Deaths < 0 {
		response.Error(c, http.StatusBadRequest, "kills and deaths must be non-negative")
		return
	}

	txn, err := database.Begin(h.db)
	if err != nil {
		storeFailure(c, err)
		return
	}
	defer txn.Close()

	entry := models.LeaderboardEntry{
		GamePlayerID: req.GamePlayerID,
		Kills:        *req.Kills,
		Deaths:       *req.Deaths,
	}
	if errCreate := txn.DB().Create(&entry).Error; errCreate != nil {
		txn.Rollback()
		if database.IsForeignKeyViolation(errCreate) {
			response.Error(c, http.StatusBadRequest, "Invalid game_player_id provided")
			return
		}
		storeFailure(c, errCreate)
		return
	}

	if errCommit := txn.Commit(); errCommit != nil {
		storeFailure(c, errCommit)
		return
	}

	h.cache.Delete(playerAggregateKey(req.GamePlayerID))
	h.cache.PublishStatsUpdate(req.GamePlayerID)

	response.Positive(c, "Successfully added player stats.")
}

// appendFact inserts one leaderboard fact in its own transaction so the
// other half of a register-kill can still commit when this one fails.
func (h *LeaderboardHandler) appendFact(gamePlayerID uint, kills, deaths int, label string) (ok bool, fkViolation bool, message string) {
	txn, err := database.Begin(h.db)
	if err != nil {
		log.WithError(err).Error("begin transaction failed")
		return false, false, "Internal tracker error. See logs for more details."
	}
	defer txn.Close()

	entry := models.LeaderboardEntry{
		GamePlayerID: gamePlayerID,
		Kills:        kills,
		Deaths:       deaths,
	}
	if errCreate := txn.DB().Create(&entry).Error; errCreate != nil {
		txn.Rollback()
		if database.IsForeignKeyViolation(errCreate) {
			msg := fmt.Sprintf("Player %s increment failed! Invalid game_player_id?", label)
			log.Error(msg)
			return false, true, msg
		}
		log.WithError(errCreate).Error("leaderboard insert failed")
		return false, false, "Internal tracker error. See logs for more details."
	}

	if errCommit := txn.Commit(); errCommit != nil {
		log.WithError(errCommit).Error("leaderboard commit failed")
		return false, false, "Internal tracker error. See logs for more details."
	}

	h.cache.Delete(playerAggregateKey(gamePlayerID))
	h.cache.PublishStatsUpdate(gamePlayerID)
	return true, false, ""
}

// RegisterKill appends a kill fact for the surviving player and a death
// fact for the dead one as two independent sub-operations; one may commit
// while the other fails, and the combined message reports both outcomes.
func (h *LeaderboardHandler) RegisterKill(c *gin.Context) {
	var req RegisterKillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AliveGamePlayerID == 0 && req.DeadGamePlayerID == 0 {
		response.Error(c, http.StatusBadRequest, "Invalid parameters")
		return
	}

	fkSeen := false
	var messages []string

	if req.AliveGamePlayerID != 0 {
		if ok, fk, msg := h.appendFact(req.AliveGamePlayerID, 1, 0, "kill"); !ok {
			fkSeen = fkSeen || fk
			messages = append(messages, msg)
		}
	}
	if req.DeadGamePlayerID != 0 {
		if ok, fk, msg := h.appendFact(req.DeadGamePlayerID, 0, 1, "death"); !ok {
			fkSeen = fkSeen || fk
			messages = append(messages, msg)
		}
	}

	if len(messages) > 0 {
		code := http.StatusInternalServerError
		if fkSeen {
			code = http.StatusBadRequest
		}
		response.Error(c, code, strings.Join(messages, " "))
		return
	}
	response.Positive(c, "Successfully updated player stats.")
}
