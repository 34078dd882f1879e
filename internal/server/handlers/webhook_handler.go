package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	service "github.com/mamadbah2/dairy/internal/service/whatsapp"
)

// ChannelHandler exposes the WhatsApp operator channel: Meta's webhook for
// ledger commands and a manual send endpoint for notices to farmers.
type ChannelHandler struct {
	channel service.MessagingService
	logger  *zap.Logger
}

// NewChannelHandler constructs the HTTP handler adapter.
func NewChannelHandler(channel service.MessagingService, logger *zap.Logger) *ChannelHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelHandler{channel: channel, logger: logger}
}

// Verify answers the subscription handshake with the echoed challenge.
func (h *ChannelHandler) Verify(c *gin.Context) {
	challenge, err := h.channel.VerifyWebhookToken(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if err != nil {
		h.logger.Warn("channel subscription rejected", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive applies the ledger commands carried by a webhook callback. It always
// acknowledges a well-formed callback: a redelivery would record the same
// milk or payment twice.
func (h *ChannelHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("malformed channel callback", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	messages := countMessages(payload)
	if messages == 0 {
		// Status receipts (delivered, read) carry no commands.
		c.Status(http.StatusOK)
		return
	}

	if err := h.channel.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("ledger command from channel failed", zap.Int("messages", messages), zap.Error(err))
	} else {
		h.logger.Debug("ledger commands handled", zap.Int("messages", messages))
	}
	c.Status(http.StatusOK)
}

// SendMessage pushes a manual notice, such as a balance reminder, to a farmer.
func (h *ChannelHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "to and message are required", err)
		return
	}

	if err := h.channel.SendOutbound(c.Request.Context(), req); err != nil {
		h.logger.Error("notice delivery failed", zap.String("to", req.To), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"to": req.To, "status": "queued"})
}

func (h *ChannelHandler) badRequest(c *gin.Context, message string, err error) {
	h.logger.Warn(message, zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func countMessages(payload models.WebhookPayload) int {
	n := 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			n += len(change.Value.Messages)
		}
	}
	return n
}
