// Package notify renders and delivers transactional email.
package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Message is one outgoing email.
type Message struct {
	To      string `json:"to"`      // Recipient address.
	Subject string `json:"subject"` // Subject line.
	Body    string `json:"body"`    // Plain text body.
	Kind    string `json:"kind"`    // Template that produced the message.
}

// Sender delivers a message through some transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

// Send logs msg.
func (LogSender) Send(_ context.Context, msg Message) error {
	log.WithFields(log.Fields{"to": msg.To, "subject": msg.Subject, "kind": msg.Kind}).Info("email (log transport)")
	log.Debug(msg.Body)
	return nil
}
