package push

import (
	"context"

	"firebase.google.com/go/v4/messaging"

	"github.com/anonto42/whoami-today/backend/internal/models"
)

// FCMSender delivers jobs through Firebase Cloud Messaging. Payloads are
// data-only so the client can collapse and cancel by tag.
type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{client: client}
}

func (s *FCMSender) Send(ctx context.Context, device models.Device, job Job) error {
	_, err := s.client.Send(ctx, buildMessage(device, job))
	if err != nil && messaging.IsUnregistered(err) {
		return ErrUnregistered
	}
	return err
}

func buildMessage(device models.Device, job Job) *messaging.Message {
	data := map[string]string{
		"tag":  job.Tag(),
		"type": job.kind(),
	}
	if !job.Cancel {
		data["message"] = job.Message(device.Language)
		data["message_ko"] = job.MessageKo
		data["message_en"] = job.MessageEn
		data["url"] = job.RedirectURL
	}
	return &messaging.Message{
		Token: device.RegistrationID,
		Data:  data,
		Android: &messaging.AndroidConfig{
			CollapseKey: job.Tag(),
			Priority:    "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-collapse-id": job.Tag()},
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{ContentAvailable: true}},
		},
	}
}
