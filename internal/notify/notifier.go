package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	retry "github.com/appleboy/go-httpretry"
)

// Notifier posts decision announcements to a Discord webhook. A disabled
// notifier (empty URL) silently drops messages so callers need no guards.
type Notifier struct {
	webhookURL  string
	retryClient *retry.Client
}

// NewNotifier creates a webhook notifier
func NewNotifier(webhookURL string, retryClient *retry.Client) *Notifier {
	return &Notifier{
		webhookURL:  webhookURL,
		retryClient: retryClient,
	}
}

// Enabled reports whether a webhook URL is configured
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// webhookMessage is the minimal Discord webhook payload
type webhookMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

type webhookEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []webhookEmbedField `json:"fields,omitempty"`
}

type webhookEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed colors for decision outcomes
const (
	colorApproved = 0x57F287
	colorRejected = 0xED4245
)

// DecisionNotice carries everything the announcement embed needs
type DecisionNotice struct {
	ApplicantTag    string
	ApplicantID     string
	RobloxUsername  string
	Approved        bool
	RejectionReason string
	ReviewerName    string
	ScoreSummary    string
}

// SendDecision announces an application decision on the configured webhook
func (n *Notifier) SendDecision(ctx context.Context, notice DecisionNotice) error {
	if !n.Enabled() {
		return nil
	}

	title := "✅ Solicitud aprobada"
	color := colorApproved
	if !notice.Approved {
		title = "❌ Solicitud rechazada"
		color = colorRejected
	}

	fields := []webhookEmbedField{
		{Name: "Postulante", Value: fmt.Sprintf("%s (<@%s>)", notice.ApplicantTag, notice.ApplicantID), Inline: true},
		{Name: "Revisor", Value: notice.ReviewerName, Inline: true},
	}
	if notice.RobloxUsername != "" {
		fields = append(fields, webhookEmbedField{
			Name: "Roblox", Value: notice.RobloxUsername, Inline: true,
		})
	}
	if notice.ScoreSummary != "" {
		fields = append(fields, webhookEmbedField{
			Name: "Puntuación", Value: notice.ScoreSummary,
		})
	}
	if !notice.Approved && notice.RejectionReason != "" {
		fields = append(fields, webhookEmbedField{
			Name: "Motivo", Value: notice.RejectionReason,
		})
	}

	return n.send(ctx, webhookMessage{
		Embeds: []webhookEmbed{{Title: title, Color: color, Fields: fields}},
	})
}

// SendManualFallback posts a plain-text message asking staff to apply the
// role changes by hand, used when the automation webhook failed.
func (n *Notifier) SendManualFallback(ctx context.Context, applicantTag, applicantID string) error {
	if !n.Enabled() {
		return nil
	}
	return n.send(ctx, webhookMessage{
		Content: fmt.Sprintf(
			"⚠️ La automatización falló para **%s** (<@%s>). Asignen los roles manualmente.",
			applicantTag, applicantID,
		),
	})
}

func (n *Notifier) send(ctx context.Context, msg webhookMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	resp, err := n.retryClient.Post(
		ctx,
		n.webhookURL,
		retry.WithBody("application/json", bytes.NewBuffer(payload)),
	)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error: HTTP %d - %s", resp.StatusCode, string(body))
	}
	return nil
}
