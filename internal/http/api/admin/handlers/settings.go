package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	apphttp "github.com/tablehouse/eventdesk/internal/http"
	"github.com/tablehouse/eventdesk/internal/settings"
	"gorm.io/gorm"
)

// SettingsHandler reads and writes DB-backed settings.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// List returns every known setting with its effective and default value.
func (h *SettingsHandler) List(c *gin.Context) {
	defaults := settings.Defaults()
	stored := settings.Values()
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		item := gin.H{"key": key, "default": defaults[key], "value": defaults[key], "overridden": false}
		if raw, ok := stored[key]; ok && len(raw) > 0 {
			item["value"] = raw
			item["overridden"] = true
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"settings": out, "updated_at": settings.DBConfigUpdatedAt()})
}

// updateSettingRequest defines the request body for a setting change.
type updateSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// Update stores one setting. Numeric settings must be positive integers.
func (h *SettingsHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	fallback, known := settings.Defaults()[key]
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown setting"})
		return
	}
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	switch fallback.(type) {
	case int:
		var n int64
		if errDecode := json.Unmarshal(body.Value, &n); errDecode != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a positive integer"})
			return
		}
	case string:
		var s string
		if errDecode := json.Unmarshal(body.Value, &s); errDecode != nil || strings.TrimSpace(s) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a non-empty string"})
			return
		}
	}

	if errSave := settings.Save(c.Request.Context(), h.db, key, body.Value); errSave != nil {
		log.WithError(errSave).WithField("key", key).Error("save setting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	log.WithFields(log.Fields{
		"key":   key,
		"admin": apphttp.AdminUsername(c),
	}).Info("setting updated")
	c.JSON(http.StatusOK, gin.H{"key": key, "value": body.Value})
}
