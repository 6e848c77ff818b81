package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"game-server-tracker/internal/response"
	"game-server-tracker/internal/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Servers older than this are considered gone from the active listing.
const serverFreshness = 5 * time.Minute

var (
	errPermissionDenied = errors.New("permission denied")
	errInvalidDevParam  = errors.New("invalid dev parameter")
)

// resolveDev decides which partition a read request sees. An absent dev
// parameter means identified callers inherit their credential's partition
// and anonymous callers get production. Anonymous callers asking for dev
// data are refused.
func resolveDev(c *gin.Context, auth *services.AuthContext) (bool, error) {
	raw := c.Query("dev")
	if raw == "" {
		if auth != nil && !auth.Anonymous {
			return auth.Development, nil
		}
		return false, nil
	}

	dev, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errInvalidDevParam
	}
	if dev && (auth == nil || auth.Anonymous) {
		return false, errPermissionDenied
	}
	return dev, nil
}

// writeDevError maps resolveDev failures onto the envelope.
func writeDevError(c *gin.Context, err error) {
	if errors.Is(err, errPermissionDenied) {
		response.Error(c, http.StatusForbidden, "Permission denied")
		return
	}
	response.Error(c, http.StatusBadRequest, "Invalid dev parameter")
}

// storeFailure logs the real error and reports a generic 500.
func storeFailure(c *gin.Context, err error) {
	log.WithError(err).Error("store operation failed")
	response.Error(c, http.StatusInternalServerError, "Internal tracker error. See logs for more details.")
}

// AuthTest verifies that a presented PSK authenticates.
func AuthTest(c *gin.Context) {
	response.Positive(c, "Success")
}
