// Package push delivers notifications to user devices.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/anonto42/goalsocial/backend/internal/models"
	"go.uber.org/zap"
)

// ErrNoDeviceToken is returned when the recipient has no registered device.
var ErrNoDeviceToken = errors.New("user has no device token")

// Gateway sends a persisted notification to its already-loaded recipient.
// Callers treat every error as non-fatal.
type Gateway interface {
	Send(ctx context.Context, recipient *models.User, n *models.Notification) error
}

// Sender is the subset of *messaging.Client used here.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMGateway delivers through Firebase Cloud Messaging to the user's
// registered token.
type FCMGateway struct {
	client Sender
	logger *zap.Logger
}

// NewFCMGateway creates a gateway backed by an FCM client.
func NewFCMGateway(client Sender, logger *zap.Logger) *FCMGateway {
	return &FCMGateway{client: client, logger: logger}
}

func (g *FCMGateway) Send(ctx context.Context, recipient *models.User, n *models.Notification) error {
	if recipient == nil || recipient.FCMToken == "" {
		return ErrNoDeviceToken
	}

	msg, err := buildMessage(recipient.FCMToken, n)
	if err != nil {
		return err
	}
	messageID, err := g.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	g.logger.Debug("push sent",
		zap.Uint("user_id", recipient.ID),
		zap.String("notification_id", n.ID.Hex()),
		zap.String("message_id", messageID),
	)
	return nil
}

func buildMessage(token string, n *models.Notification) (*messaging.Message, error) {
	data := map[string]string{
		"notification_id": n.ID.Hex(),
		"type":            string(n.Type),
	}
	if n.Data != nil {
		payload, err := json.Marshal(n.Data)
		if err != nil {
			return nil, fmt.Errorf("encode push payload: %w", err)
		}
		data["payload"] = string(payload)
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}, nil
}

// NoopGateway drops every notification. Used when push is disabled.
type NoopGateway struct {
	logger *zap.Logger
}

func NewNoopGateway(logger *zap.Logger) *NoopGateway {
	return &NoopGateway{logger: logger}
}

func (g *NoopGateway) Send(_ context.Context, _ *models.User, n *models.Notification) error {
	g.logger.Debug("push disabled, dropping notification",
		zap.Uint("user_id", n.UserID),
		zap.String("type", string(n.Type)),
	)
	return nil
}
