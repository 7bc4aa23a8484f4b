package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

type VerificationNotification struct {
	UserID          uint
	Email           string
	Token           string
	ExpiresAt       time.Time
	VerificationURL string
}

// EmailVerificationNotifier delivers the verification link after
// registration. Production wires a real mailer; development logs the link.
type EmailVerificationNotifier interface {
	SendEmailVerification(ctx context.Context, n VerificationNotification) error
}

type LogEmailVerificationNotifier struct {
	logger *slog.Logger
}

func NewLogEmailVerificationNotifier(logger *slog.Logger) *LogEmailVerificationNotifier {
	return &LogEmailVerificationNotifier{logger: logger}
}

func (n *LogEmailVerificationNotifier) SendEmailVerification(ctx context.Context, notification VerificationNotification) error {
	link := notification.VerificationURL
	if strings.TrimSpace(link) == "" {
		link = "token=" + notification.Token
	}
	n.logger.InfoContext(ctx, "verification link issued",
		"user_id", notification.UserID,
		"email", notification.Email,
		"expires_at", notification.ExpiresAt,
		"verification", link,
	)
	return nil
}
