package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/commands"
	client "github.com/mamadbah2/dairy/pkg/clients/whatsapp"
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

var errorReplies = map[error]models.AutomationReply{
	commands.ErrInvalidArguments: {
		Title:   "Invalid Command",
		Message: "Could not read the numbers in your message.\n" + commands.Usage,
	},
	commands.ErrUnsupportedCommand: {
		Title:   "Command Help",
		Message: "Unknown command.\n" + commands.Usage,
	},
	commands.ErrUnknownFarmer: {
		Title:   "Unknown Farmer",
		Message: "No farmer matches that name or id.",
	},
	commands.ErrAmbiguousFarmer: {
		Title:   "Ambiguous Farmer",
		Message: "Several farmers share that name. Use the farmer id instead.",
	},
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := extractMessageText(msg)
	if text == "" {
		return errors.New("empty message body")
	}

	var outbound string
	if s.cfg.ManagerID != "" && msg.From != s.cfg.ManagerID {
		s.logger.Warn("ignoring command from unauthorised sender", zap.String("from", msg.From))
		outbound = "This number is not allowed to update the milk ledger."
	} else {
		cmd := models.ParseCommand(text)
		s.logger.Info("parsed inbound command",
			zap.String("from", msg.From),
			zap.String("command", string(cmd.Type)),
			zap.Strings("args", cmd.Args))
		outbound = s.reply(ctx, cmd, msg.From)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:   msg.From,
		Body: outbound,
	})
	return err
}

// reply runs the command and turns validation failures into help text.
// Any other error comes from storage after the ledger already applied the
// change, so the sender is told not to resend it.
func (s *MetaWhatsAppService) reply(ctx context.Context, cmd models.Command, sender string) string {
	result, err := s.dispatcher.HandleCommand(ctx, cmd, sender)
	if err == nil {
		return result
	}

	for target, reply := range errorReplies {
		if errors.Is(err, target) {
			return fmt.Sprintf("%s\n%s", reply.Title, reply.Message)
		}
	}

	s.logger.Error("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
	return "Change applied but could not be saved.\nDo not send it again; ask the manager to check the storage."
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	return err
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}

	if msg.Interactive != nil {
		if msg.Interactive.ButtonReply != nil {
			return msg.Interactive.ButtonReply.ID
		}
		if msg.Interactive.ListReply != nil {
			return msg.Interactive.ListReply.ID
		}
	}

	return ""
}
