package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	retry "github.com/appleboy/go-httpretry"
)

// Automation triggers the role-assignment pipeline after an approval. The
// receiving end (a bot with guild permissions) grants the staff roles and
// sends the applicant a DM.
type Automation struct {
	webhookURL  string
	retryClient *retry.Client
}

// NewAutomation creates an automation trigger. The retry client is expected
// to carry the shared-secret header for the automation endpoint.
func NewAutomation(webhookURL string, retryClient *retry.Client) *Automation {
	return &Automation{
		webhookURL:  webhookURL,
		retryClient: retryClient,
	}
}

// Enabled reports whether an automation endpoint is configured
func (a *Automation) Enabled() bool {
	return a.webhookURL != ""
}

// approvalEvent is the payload consumed by the automation pipeline
type approvalEvent struct {
	Event          string `json:"event"`
	ApplicationID  string `json:"application_id"`
	ApplicantID    string `json:"applicant_id"`
	ApplicantTag   string `json:"applicant_tag"`
	RobloxID       int64  `json:"roblox_id,omitempty"`
	RobloxUsername string `json:"roblox_username,omitempty"`
	ReviewerName   string `json:"reviewer_name"`
}

// TriggerApproval notifies the automation pipeline of an approval
func (a *Automation) TriggerApproval(
	ctx context.Context,
	applicationID, applicantID, applicantTag string,
	robloxID int64,
	robloxUsername, reviewerName string,
) error {
	if !a.Enabled() {
		return nil
	}

	payload, err := json.Marshal(approvalEvent{
		Event:          "application.approved",
		ApplicationID:  applicationID,
		ApplicantID:    applicantID,
		ApplicantTag:   applicantTag,
		RobloxID:       robloxID,
		RobloxUsername: robloxUsername,
		ReviewerName:   reviewerName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal automation payload: %w", err)
	}

	resp, err := a.retryClient.Post(
		ctx,
		a.webhookURL,
		retry.WithBody("application/json", bytes.NewBuffer(payload)),
	)
	if err != nil {
		return fmt.Errorf("failed to reach automation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("automation error: HTTP %d - %s", resp.StatusCode, string(body))
	}
	return nil
}
