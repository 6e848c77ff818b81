package handlers

import (
	"net/http"
	"strconv"
	"time"

	"game-server-tracker/internal/cache"
	"game-server-tracker/internal/database"
	"game-server-tracker/internal/middleware"
	"game-server-tracker/internal/models"
	"game-server-tracker/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServerHandler struct {
	db    *gorm.DB
	cache *cache.Manager
}

func NewServerHandler(db *gorm.DB, cacheMgr *cache.Manager) *ServerHandler {
	return &ServerHandler{db: db, cache: cacheMgr}
}

type PingRequest struct {
	Hostname      string `json:"hostname" binding:"required"`
	Port          int    `json:"port" binding:"required"`
	Name          string `json:"name" binding:"required"`
	ActivePlayers *int   `json:"activePlayers" binding:"required"`
	MaxPlayers    int    `json:"maxPlayers"`
	GameUUID      string `json:"game_uuid"`
}

// ListServers returns every active server in randomized order. Active means
// pinged within the freshness window and not marked down.
func (h *ServerHandler) ListServers(c *gin.Context) {
	auth := middleware.Auth(c)
	dev, err := resolveDev(c, auth)
	if err != nil {
		writeDevError(c, err)
		return
	}

	cutoff := time.Now().Add(-serverFreshness)

	var pings []models.ServerPing
	errFind := h.db.
		Where("ping > ? AND down = ? AND dev = ?", cutoff, false, dev).
		Order("RANDOM()").
		Find(&pings).Error
	if errFind != nil {
		storeFailure(c, errFind)
		return
	}
	if len(pings) == 0 {
		response.Error(c, http.StatusNotFound, "No servers found")
		return
	}

	results := make([]gin.H, 0, len(pings))
	for _, ping := range pings {
		results = append(results, gin.H{
			"hostname":      ping.Hostname,
			"port":          ping.Port,
			"name":          ping.Name,
			"ping":          ping.Ping.Format(time.RFC3339),
			"activePlayers": ping.Active,
			"maxPlayers":    ping.Max,
			"game_uuid":     ping.GameUUID,
		})
	}
	response.Results(c, results)
}

// Ping registers or refreshes a server listing. A supplied game_uuid is
// created on first sight and left untouched on conflict, so an existing
// game's partition always wins even across dev/production. Without a
// game_uuid a fresh game session is always created.
func (h *ServerHandler) Ping(c *gin.Context) {
	var req PingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 8
	}
	if req.GameUUID != "" {
		if _, err := uuid.Parse(req.GameUUID); err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid UUID")
			return
		}
	}

	auth := middleware.Auth(c)
	dev := auth.Development

	log.WithFields(log.Fields{
		"hostname":      req.Hostname,
		"port":          req.Port,
		"name":          req.Name,
		"activePlayers": *req.ActivePlayers,
		"maxPlayers":    req.MaxPlayers,
		"game_uuid":     req.GameUUID,
		"dev":           dev,
	}).Info("server ping")

	txn, err := database.Begin(h.db)
	if err != nil {
		storeFailure(c, err)
		return
	}
	defer txn.Close()
	tx := txn.DB()

	now := time.Now()
	gameUUID := req.GameUUID
	if gameUUID != "" {
		game := models.Game{GameUUID: gameUUID, Stamp: now, Dev: dev}
		if errCreate := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&game).Error; errCreate != nil {
			txn.Rollback()
			log.WithError(errCreate).Error("game insert failed")
			response.Error(c, http.StatusInternalServerError, "Could not create new game.")
			return
		}
	} else {
		gameUUID = uuid.New().String()
		game := models.Game{GameUUID: gameUUID, Stamp: now, Dev: dev}
		if errCreate := tx.Create(&game).Error; errCreate != nil {
			txn.Rollback()
			log.WithError(errCreate).Error("game insert failed")
			response.Error(c, http.StatusInternalServerError, "Could not create new game.")
			return
		}
	}

	ping := models.ServerPing{
		Hostname: req.Hostname,
		Port:     req.Port,
		Name:     req.Name,
		Ping:     now,
		Active:   *req.ActivePlayers,
		Max:      req.MaxPlayers,
		Dev:      dev,
		GameUUID: gameUUID,
		Down:     false,
	}
	result := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hostname"}, {Name: "port"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":      req.Name,
			"ping":      now,
			"active":    *req.ActivePlayers,
			"max":       req.MaxPlayers,
			"dev":       dev,
			"game_uuid": gameUUID,
			"down":      false,
		}),
	}).Create(&ping)
	if result.Error != nil {
		txn.Rollback()
		storeFailure(c, result.Error)
		return
	}
	if result.RowsAffected < 1 {
		txn.Rollback()
		log.Error("ping failed")
		response.Error(c, http.StatusInternalServerError, "Ping failed for unknown reasons!")
		return
	}

	if errCommit := txn.Commit(); errCommit != nil {
		storeFailure(c, errCommit)
		return
	}

	h.cache.PublishServerUpdate(req.Hostname, req.Port, gameUUID)

	response.Success(c, "Ping successful!", []gin.H{{"game_uuid": gameUUID}})
}

// RemoveServer soft-deletes a listing so history is retained; the row is
// only marked down.
func (h *ServerHandler) RemoveServer(c *gin.Context) {
	hostname := c.Query("hostname")
	portStr := c.Query("port")
	if hostname == "" || portStr == "" {
		response.Error(c, http.StatusBadRequest, "hostname and port are required")
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid port")
		return
	}

	txn, err := database.Begin(h.db)
	if err != nil {
		storeFailure(c, err)
		return
	}
	defer txn.Close()

	result := txn.DB().Model(&models.ServerPing{}).
		Where("hostname = ? AND port = ?", hostname, port).
		Update("down", true)
	if result.Error != nil {
		txn.Rollback()
		storeFailure(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		txn.Rollback()
		response.Error(c, http.StatusNotFound, "No servers found")
		return
	}

	if errCommit := txn.Commit(); errCommit != nil {
		storeFailure(c, errCommit)
		return
	}
	response.Positive(c, "Shutdown successful!")
}
