package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
)

const defaultSlackAPIURL = "https://slack.com/api/chat.postMessage"

// SlackNotifier posts alerts to a channel through the Slack Web API using a
// bot token.
type SlackNotifier struct {
	botToken   string
	channelID  string
	apiURL     string
	domain     string
	httpClient *http.Client
}

type SlackMessage struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

type SlackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

func NewSlackNotifier(botToken, channelID, domain string) *SlackNotifier {
	return &SlackNotifier{
		botToken:  botToken,
		channelID: channelID,
		apiURL:    defaultSlackAPIURL,
		domain:    domain,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetAPIURL points the notifier at a different endpoint (tests, proxies).
func (c *SlackNotifier) SetAPIURL(url string) {
	c.apiURL = url
}

// IsConfigured reports whether both the bot token and channel are set.
func (c *SlackNotifier) IsConfigured() bool {
	return c.botToken != "" && c.channelID != ""
}

func (c *SlackNotifier) Notify(ctx context.Context, alert models.Alert) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack notifier is not configured")
	}

	_, err := c.send(ctx, c.buildMessage(alert))
	return err
}

func (c *SlackNotifier) buildMessage(alert models.Alert) SlackMessage {
	fields := []SlackField{
		{Title: "Severity", Value: strings.ToUpper(string(alert.Severity)), Short: true},
		{Title: "Type", Value: string(alert.Type), Short: true},
	}
	if alert.Trigger.Keyword != "" {
		fields = append(fields, SlackField{Title: "Keyword", Value: alert.Trigger.Keyword, Short: true})
	}
	fields = append(fields,
		SlackField{Title: "Threshold", Value: fmt.Sprintf("%g", alert.Trigger.Threshold), Short: true},
		SlackField{Title: "Actual", Value: fmt.Sprintf("%g", alert.Trigger.Actual), Short: true},
	)

	return SlackMessage{
		Channel: c.channelID,
		Text:    fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title),
		Attachments: []SlackAttachment{{
			Color:  severityColor(alert.Severity),
			Title:  alert.Title,
			Text:   alert.Description,
			Footer: c.domain,
			Ts:     alert.Timestamp.Unix(),
			Fields: fields,
		}},
	}
}

func severityColor(severity models.AlertSeverity) string {
	switch severity {
	case models.SeverityCritical:
		return "#dc3545"
	case models.SeverityHigh:
		return "#fd7e14"
	case models.SeverityMedium:
		return "#ffc107"
	default:
		return "#36a64f"
	}
}

func (c *SlackNotifier) send(ctx context.Context, msg SlackMessage) (*SlackResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var slackResp SlackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !slackResp.OK {
		return nil, fmt.Errorf("slack API error: %s", slackResp.Error)
	}

	return &slackResp, nil
}
