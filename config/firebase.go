package config

import (
	"context"
	"encoding/base64"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/punguzo/mlm_backend/logging"
)

// InitMessaging initializes the Firebase Admin SDK and returns its messaging client.
// Base64 encoded credentials take precedence over a credentials file.
func InitMessaging(cfg *Config) (*messaging.Client, error) {
	ctx := context.Background()

	var opt option.ClientOption
	switch {
	case cfg.FirebaseCredentialsBase64 != "":
		logging.Logger.Info("using Firebase credentials from base64 environment variable")
		decoded, err := base64.StdEncoding.DecodeString(cfg.FirebaseCredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case cfg.FirebaseCredentialsFile != "":
		logging.Logger.Info("using Firebase credentials file", zap.String("file", cfg.FirebaseCredentialsFile))
		opt = option.WithCredentialsFile(cfg.FirebaseCredentialsFile)
	default:
		return nil, fmt.Errorf("firebase credentials not configured: set FIREBASE_CREDENTIALS_BASE64 or GOOGLE_APPLICATION_CREDENTIALS")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}
	return client, nil
}
