package sms

import "member-portal-be/internal/pkg/logger"

// IProvider is the outbound SMS contract. Sends are fire-and-forget: the
// notification service logs a failure and moves on, it never retries.
type IProvider interface {
	Send(toPhone, message string) error
}

// logProvider writes the message to the log instead of a carrier. Stands in
// until an SMS gateway is wired up.
type logProvider struct {
	logger logger.ILogger
}

func NewLogProvider(log logger.ILogger) IProvider {
	return &logProvider{logger: log}
}

func (p *logProvider) Send(toPhone, message string) error {
	p.logger.Info("SMS", "Outbound SMS", map[string]interface{}{
		"to":      toPhone,
		"message": message,
	})
	return nil
}
