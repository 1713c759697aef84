// Package notify pushes trade and lifecycle alerts to a Slack-compatible
// webhook. A notifier built with an empty URL is disabled and all sends
// become no-ops.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	colorGreen = "#36a64f"
	colorRed   = "#e74c3c"
	colorGray  = "#95a5a6"
)

// SlackNotifier sends notifications to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	log        *logrus.Entry
	enabled    bool
}

// SlackMessage represents a Slack message payload.
type SlackMessage struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a Slack attachment.
type Attachment struct {
	Color     string  `json:"color,omitempty"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text,omitempty"`
	Footer    string  `json:"footer,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
	Timestamp int64   `json:"ts,omitempty"`
}

// Field represents an attachment field.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackNotifier creates a notifier for the given webhook URL. An empty
// URL disables it.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logrus.WithField("component", "notify"),
		enabled:    webhookURL != "",
	}
}

// IsEnabled returns true if notifications are enabled.
func (s *SlackNotifier) IsEnabled() bool {
	return s.enabled
}

// TradeAlert announces a finalized trade. profit is the realized USD
// amount for sells; pass 0 for buys.
func (s *SlackNotifier) TradeAlert(market, side, orderType string, price, size, profit float64, orderID string) {
	if !s.enabled {
		return
	}

	color := colorGreen
	if profit < 0 {
		color = colorRed
	}

	fields := []Field{
		{Title: "Market", Value: market, Short: true},
		{Title: "Side", Value: side, Short: true},
		{Title: "Type", Value: orderType, Short: true},
		{Title: "Price", Value: fmt.Sprintf("%.2f", price), Short: true},
		{Title: "Size", Value: fmt.Sprintf("$%.2f", size), Short: true},
		{Title: "Order", Value: orderID, Short: true},
	}
	if side == "SELL" {
		fields = append(fields, Field{Title: "Profit", Value: fmt.Sprintf("$%.2f", profit), Short: true})
	}

	s.send(SlackMessage{
		Attachments: []Attachment{{
			Color:     color,
			Title:     "Trade Executed",
			Fields:    fields,
			Footer:    "updown-bot",
			Timestamp: time.Now().Unix(),
		}},
	})
}

// Startup announces that the bot came up.
func (s *SlackNotifier) Startup(market string, simulated bool) {
	if !s.enabled {
		return
	}

	mode := "live"
	if simulated {
		mode = "simulation"
	}
	s.send(SlackMessage{
		Attachments: []Attachment{{
			Color: colorGreen,
			Title: "Bot Started",
			Fields: []Field{
				{Title: "Market", Value: market, Short: true},
				{Title: "Mode", Value: mode, Short: true},
			},
			Footer:    "updown-bot",
			Timestamp: time.Now().Unix(),
		}},
	})
}

// Shutdown announces a graceful stop with final counters.
func (s *SlackNotifier) Shutdown(trades int, realized float64) {
	if !s.enabled {
		return
	}

	s.send(SlackMessage{
		Attachments: []Attachment{{
			Color: colorGray,
			Title: "Bot Stopped",
			Fields: []Field{
				{Title: "Trades", Value: fmt.Sprintf("%d", trades), Short: true},
				{Title: "Realized P&L", Value: fmt.Sprintf("$%.2f", realized), Short: true},
			},
			Footer:    "updown-bot",
			Timestamp: time.Now().Unix(),
		}},
	})
}

// send posts the message; failures are logged, never propagated, so a dead
// webhook can not stall trading.
func (s *SlackNotifier) send(msg SlackMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.WithError(err).Warn("marshal notification")
		return
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(data))
	if err != nil {
		s.log.WithError(err).Warn("post notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warnf("webhook returned status %d", resp.StatusCode)
	}
}
