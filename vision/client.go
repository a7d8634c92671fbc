package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"doorbell-lab/domain"
	apperrors "doorbell-lab/errors"
)

const (
	annotatePath = "/v1/images:annotate"

	// FaceLabel is the synthetic label used for face annotations, which the
	// API reports separately from label annotations.
	FaceLabel = "face"

	retryBackoff = 500 * time.Millisecond
)

// BearerSource provides OAuth bearer tokens for API calls.
type BearerSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is a thin REST client for the Cloud Vision images:annotate endpoint.
// It asks for label and face detection in a single batched request and
// flattens both into domain annotations.
type Client struct {
	log        *slog.Logger
	endpoint   string
	http       *http.Client
	tokens     BearerSource
	maxResults int
	retries    int
}

func NewClient(log *slog.Logger, endpoint string, httpClient *http.Client,
	tokens BearerSource, maxResults, retries int) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		log:        log,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		http:       httpClient,
		tokens:     tokens,
		maxResults: maxResults,
		retries:    retries,
	}
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	LabelAnnotations []labelAnnotation `json:"labelAnnotations"`
	FaceAnnotations  []faceAnnotation  `json:"faceAnnotations"`
	Error            *apiStatus        `json:"error"`
}

type labelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type faceAnnotation struct {
	DetectionConfidence float64 `json:"detectionConfidence"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// codeInvalidArgument is the google.rpc code the API uses for undecodable
// image content.
const codeInvalidArgument = 3

// Annotate submits one image and returns its annotations. Remote failures
// are retried with a linear backoff up to the configured count; auth and
// invalid-image failures are final.
func (c *Client) Annotate(ctx context.Context, payload []byte) (domain.Annotations, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", apperrors.ErrInvalidImage)
	}

	body, err := json.Marshal(annotateRequest{
		Requests: []imageRequest{{
			Image: imageContent{Content: base64.StdEncoding.EncodeToString(payload)},
			Features: []feature{
				{Type: "LABEL_DETECTION", MaxResults: c.maxResults},
				{Type: "FACE_DETECTION", MaxResults: c.maxResults},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRemote, err)
	}

	var annotations domain.Annotations
	for attempt := 0; ; attempt++ {
		annotations, err = c.annotateOnce(ctx, body)
		if err == nil || !errors.Is(err, apperrors.ErrRemote) || attempt >= c.retries {
			break
		}

		c.log.Warn("Vision request failed, retrying",
			"attempt", attempt+1, "max", c.retries, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", apperrors.ErrRemote, ctx.Err())
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}
	return annotations, err
}

func (c *Client) annotateOnce(ctx context.Context, body []byte) (domain.Annotations, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+annotatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRemote, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRemote, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s",
			apperrors.ErrRemote, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded annotateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", apperrors.ErrRemote, err)
	}
	if len(decoded.Responses) == 0 {
		return domain.Annotations{}, nil
	}

	return flatten(decoded.Responses[0])
}

// flatten turns one image response into domain annotations. Faces carry a
// detection confidence instead of a score, so they become a fixed label.
func flatten(r imageResponse) (domain.Annotations, error) {
	if r.Error != nil {
		if r.Error.Code == codeInvalidArgument {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidImage, r.Error.Message)
		}
		return nil, fmt.Errorf("%w: api error %d: %s",
			apperrors.ErrRemote, r.Error.Code, r.Error.Message)
	}

	annotations := make(domain.Annotations, 0, len(r.LabelAnnotations)+len(r.FaceAnnotations))
	for _, l := range r.LabelAnnotations {
		annotations = append(annotations, domain.Annotation{
			Label:      l.Description,
			Confidence: l.Score,
		})
	}
	for _, f := range r.FaceAnnotations {
		annotations = append(annotations, domain.Annotation{
			Label:      FaceLabel,
			Confidence: f.DetectionConfidence,
		})
	}
	return annotations, nil
}
