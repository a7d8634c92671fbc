package doorbell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"doorbell-lab/domain"
	apperrors "doorbell-lab/errors"
)

// SlackDoorbell posts one message per ring to a Slack-compatible incoming
// webhook. Delivery is best effort and at-most-once: there is no retry
// queue, a failed ring is only reported to the caller.
type SlackDoorbell struct {
	log        *slog.Logger
	webhookURL string
	http       *http.Client
}

func NewSlackDoorbell(log *slog.Logger, webhookURL string, httpClient *http.Client) *SlackDoorbell {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SlackDoorbell{log: log, webhookURL: webhookURL, http: httpClient}
}

type payload struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type attachment struct {
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Ring sends exactly one HTTP POST for the notification. Only the response
// status code is consumed.
func (d *SlackDoorbell) Ring(ctx context.Context, n domain.NotificationEvent) error {
	msg := payload{Text: n.Text}
	if n.Label != "" {
		msg.Attachments = append(msg.Attachments, attachment{
			Title: "Detection",
			Text:  fmt.Sprintf("%s (%.1f%% sure)", n.Label, n.Confidence*100),
		})
	}
	if n.ImagePath != "" {
		msg.Attachments = append(msg.Attachments, attachment{
			Title: "Snapshot",
			Text:  n.ImagePath,
		})
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: status %d: %s",
			apperrors.ErrDelivery, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	d.log.Debug("Doorbell rang", "artifact", n.ArtifactID, "label", n.Label)
	return nil
}
