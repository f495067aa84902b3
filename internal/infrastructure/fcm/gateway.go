// Package fcm adapts domain.PushGateway onto the Firebase Cloud Messaging
// SDK, the concrete push provider behind that interface.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Gateway implements domain.PushGateway over a single FCM messaging
// client, built once at process startup from a service-account
// credentials file.
type Gateway struct {
	client *messaging.Client
}

// New builds the underlying firebase app and messaging client from a
// service-account credentials file.
func New(ctx context.Context, credentialsPath string) (*Gateway, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging client: %w", err)
	}
	return &Gateway{client: client}, nil
}

// Send dispatches a single push notification to one device token. A
// single call is one delivery attempt; retry/backoff is the caller's
// responsibility (domain.PushGateway's contract).
func (g *Gateway) Send(ctx context.Context, token, title, body string) error {
	_, err := g.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	})
	if err != nil {
		return fmt.Errorf("send fcm push: %w", err)
	}
	return nil
}
