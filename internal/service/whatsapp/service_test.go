package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/commands"
	client "github.com/mamadbah2/dairy/pkg/clients/whatsapp"
)

type fakeClient struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (f *fakeClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	f.sent = append(f.sent, req)
	return &client.SendTextMessageResponse{}, f.err
}

type fakeDispatcher struct {
	reply string
	err   error
	cmds  []models.Command
}

func (f *fakeDispatcher) HandleCommand(_ context.Context, cmd models.Command, _ string) (string, error) {
	f.cmds = append(f.cmds, cmd)
	return f.reply, f.err
}

func textPayload(from, body string) models.WebhookPayload {
	return models.WebhookPayload{Entry: []models.WebhookEntry{{
		Changes: []models.WebhookChange{{
			Value: models.WebhookValue{Messages: []models.InboundMessage{{From: from, ID: "m1", Text: &models.TextContent{Body: body}}}},
		}},
	}}}
}

func TestVerifyWebhookToken(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "secret"}, &fakeClient{}, &fakeDispatcher{}, nil)

	if got, err := svc.VerifyWebhookToken("subscribe", "secret", "42"); err != nil || got != "42" {
		t.Fatalf("expected challenge, got %q err=%v", got, err)
	}
	if _, err := svc.VerifyWebhookToken("subscribe", "wrong", "42"); err == nil {
		t.Fatalf("expected invalid token error")
	}
	if _, err := svc.VerifyWebhookToken("unsubscribe", "secret", "42"); err == nil {
		t.Fatalf("expected mode error")
	}
}

func TestHandleWebhookRepliesWithCommandResult(t *testing.T) {
	c := &fakeClient{}
	d := &fakeDispatcher{reply: "Balance for Ravi: Rs. 10.00"}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{ManagerID: "919"}, c, d, nil)

	if err := svc.HandleWebhook(context.Background(), textPayload("919", "/balance ravi")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(d.cmds) != 1 || d.cmds[0].Type != models.CommandBalance {
		t.Fatalf("unexpected dispatch: %+v", d.cmds)
	}
	if len(c.sent) != 1 || c.sent[0].To != "919" || c.sent[0].Body != d.reply {
		t.Fatalf("unexpected outbound: %+v", c.sent)
	}
}

func TestHandleWebhookTranslatesErrors(t *testing.T) {
	c := &fakeClient{}
	d := &fakeDispatcher{err: commands.ErrInvalidArguments}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, c, d, nil)

	if err := svc.HandleWebhook(context.Background(), textPayload("1", "/milk ravi x")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.HasPrefix(c.sent[0].Body, "Invalid Command") {
		t.Fatalf("unexpected reply: %q", c.sent[0].Body)
	}

	d.err = fmt.Errorf("encode payments: %w", errors.New("disk full"))
	if err := svc.HandleWebhook(context.Background(), textPayload("1", "/pay ravi 50")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	reply := c.sent[1].Body
	if !strings.Contains(reply, "applied but could not be saved") || !strings.Contains(reply, "Do not send it again") {
		t.Fatalf("persistence failure must not invite a retry: %q", reply)
	}
	if strings.Contains(reply, "try again") {
		t.Fatalf("unexpected retry advice: %q", reply)
	}
}

func TestHandleWebhookRejectsStrangers(t *testing.T) {
	c := &fakeClient{}
	d := &fakeDispatcher{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{ManagerID: "919"}, c, d, nil)

	if err := svc.HandleWebhook(context.Background(), textPayload("111", "/rate 30 100")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(d.cmds) != 0 {
		t.Fatalf("stranger command dispatched")
	}
	if len(c.sent) != 1 || !strings.Contains(c.sent[0].Body, "not allowed") {
		t.Fatalf("unexpected outbound: %+v", c.sent)
	}
}

func TestHandleWebhookEmptyBody(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, &fakeClient{}, &fakeDispatcher{}, nil)
	payload := textPayload("1", "")
	payload.Entry[0].Changes[0].Value.Messages[0].Text = nil
	if err := svc.HandleWebhook(context.Background(), payload); err == nil {
		t.Fatalf("expected empty body error")
	}
}
