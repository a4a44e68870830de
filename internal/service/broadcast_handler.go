// internal/service/broadcast_handler.go
package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fanlive/live-platform/internal/config"
)

// BroadcastHandler receives the HTTP callbacks the broadcast ingest
// server fires on publish, unpublish and DVR completion.
type BroadcastHandler struct {
	config        *config.Config
	streamService *StreamService
	logger        zerolog.Logger
}

type BroadcastAuthRequest struct {
	Name   string `json:"name"`   // Stream key from the ingest server
	IP     string `json:"addr"`   // Client IP
	App    string `json:"app"`    // Application name
	Swfurl string `json:"swfurl"` // SWF URL
	Tcurl  string `json:"tcurl"`  // TC URL
}

type BroadcastStreamRequest struct {
	Name     string `json:"name"`     // Stream key
	IP       string `json:"addr"`     // Client IP
	App      string `json:"app"`      // Application name
	Duration string `json:"duration"` // Duration in seconds (for ended streams)
	File     string `json:"file"`     // Recording file path
}

func NewBroadcastHandler(cfg *config.Config, streamService *StreamService, logger zerolog.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		config:        cfg,
		streamService: streamService,
		logger:        logger,
	}
}

func (h *BroadcastHandler) AuthenticateStream(c *gin.Context) {
	var req BroadcastAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().Err(err).Msg("❌ Error parsing auth request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	h.logger.Info().Str("name", req.Name).Str("ip", req.IP).Str("app", req.App).Msg("🔑 Broadcast auth request")

	streamKey := extractStreamKey(req.Name)

	// A valid key belongs to a stream record the creator scheduled
	stream, err := h.streamService.dynamoRepo.GetStreamByStreamKey(c.Request.Context(), streamKey)
	if err != nil {
		h.logger.Warn().Str("stream_key", streamKey).Msg("❌ Invalid stream key")
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Unauthorized",
			"code":  "INVALID_STREAM_KEY",
		})
		return
	}

	h.logger.Info().Str("creator_id", stream.CreatorID).Str("stream_key", streamKey).Msg("✅ Stream authorized")

	// Store broadcast session info in Redis for quick access
	sessionData := map[string]interface{}{
		"stream_id":  stream.ID,
		"creator_id": stream.CreatorID,
		"stream_key": streamKey,
		"client_ip":  req.IP,
		"started_at": time.Now().Unix(),
	}

	if err := h.streamService.StoreBroadcastSession(c.Request.Context(), streamKey, sessionData); err != nil {
		h.logger.Warn().Err(err).Msg("⚠️ Could not store broadcast session")
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"stream_id":  stream.ID,
		"creator_id": stream.CreatorID,
	})
}

func (h *BroadcastHandler) StreamStarted(c *gin.Context) {
	var req BroadcastStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().Err(err).Msg("❌ Error parsing stream started request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	h.logger.Info().Str("name", req.Name).Str("ip", req.IP).Msg("🔴 Stream STARTED")

	streamKey := extractStreamKey(req.Name)

	stream, err := h.streamService.StartStream(c.Request.Context(), streamKey)
	if err != nil {
		h.logger.Error().Err(err).Msg("❌ Error starting stream")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start stream"})
		return
	}

	h.logger.Info().Str("stream_id", stream.ID).Msg("✅ Stream is live")

	c.JSON(http.StatusOK, gin.H{
		"message":   "Stream started",
		"stream_id": stream.ID,
	})
}

func (h *BroadcastHandler) StreamEnded(c *gin.Context) {
	var req BroadcastStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().Err(err).Msg("❌ Error parsing stream ended request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	h.logger.Info().Str("name", req.Name).Str("duration", req.Duration).Msg("🔴 Stream ENDED")

	streamKey := extractStreamKey(req.Name)

	if err := h.streamService.EndStream(c.Request.Context(), streamKey, req.Duration); err != nil {
		h.logger.Error().Err(err).Msg("❌ Error ending stream")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not end stream"})
		return
	}

	// Clean up session
	if err := h.streamService.CleanupBroadcastSession(c.Request.Context(), streamKey); err != nil {
		h.logger.Warn().Err(err).Msg("⚠️ Could not cleanup broadcast session")
	}

	h.logger.Info().Msg("✅ Stream ended successfully")

	c.JSON(http.StatusOK, gin.H{
		"message": "Stream ended",
	})
}

func (h *BroadcastHandler) RecordingCompleted(c *gin.Context) {
	var req BroadcastStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().Err(err).Msg("❌ Error parsing recording completed request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	h.logger.Info().Str("name", req.Name).Str("file", req.File).Msg("📹 Recording COMPLETED")

	streamKey := extractStreamKey(req.Name)

	if err := h.streamService.UpdateStreamRecording(c.Request.Context(), streamKey, req.File); err != nil {
		h.logger.Error().Err(err).Msg("❌ Error updating stream recording")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update recording"})
		return
	}

	h.logger.Info().Msg("✅ Recording updated successfully")

	c.JSON(http.StatusOK, gin.H{
		"message": "Recording completed",
	})
}

// extractStreamKey strips the app prefix the ingest server may prepend
// (it can send "app/stream_key" in the name field).
func extractStreamKey(name string) string {
	if !strings.Contains(name, "/") {
		return name
	}
	parts := strings.Split(name, "/")
	return parts[len(parts)-1]
}
