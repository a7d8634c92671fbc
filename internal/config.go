package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"doorbell-lab/domain"
)

// Config is loaded once at startup from the environment (plus CLI overrides
// in main) and passed down read-only. Nothing mutates it afterwards.
type Config struct {
	// Exactly one source is needed: a motion output directory or a camera
	// snapshot endpoint.
	MotionOutputDir string `env:"MOTION_OUTPUT_DIR" validate:"required_without=StreamAddr,omitempty,dir"`
	StreamAddr      string `env:"STREAM_ADDR" validate:"omitempty,url"`

	WebhookURL  string `env:"WEBHOOK_URL" validate:"required,url"`
	JSONKeyfile string `env:"JSON_KEYFILE" validate:"omitempty,file"`

	DetectionLabels        string  `env:"DETECTION_LABELS,default=person;face"`
	DetectionMinConfidence float64 `env:"DETECTION_MIN_CONFIDENCE,default=0.7" validate:"gte=0,lte=1"`

	RingCooldown       time.Duration `env:"RING_COOLDOWN,default=10s"`
	StreamPollInterval time.Duration `env:"STREAM_POLL_INTERVAL,default=1s"`
	WatchSettleTime    time.Duration `env:"WATCH_SETTLE_TIME,default=150ms"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT,default=15s"`
	HeartbeatInterval  time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`

	VisionEndpoint   string `env:"VISION_ENDPOINT,default=https://vision.googleapis.com"`
	VisionMaxResults int    `env:"VISION_MAX_RESULTS,default=10" validate:"gt=0"`
	ClassifyRetries  int    `env:"CLASSIFY_RETRIES,default=2" validate:"gte=0"`

	BufferSize            int    `env:"BUFFER_SIZE,default=64" validate:"gt=0"`
	JournalPath           string `env:"JOURNAL_PATH"`
	DeleteAfterProcessing bool   `env:"DELETE_AFTER_PROCESSING,default=false"`
	LogLevel              string `env:"LOG_LEVEL,default=INFO"`
}

// Validate runs struct-tag validation. A failure here is fatal: the daemon
// must not start any worker with a broken config.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// Rule builds the detection rule from the configured label list.
// Labels are separated by ';' to stay shell-friendly.
func (c Config) Rule() domain.Rule {
	var labels []string
	for _, l := range strings.Split(c.DetectionLabels, ";") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return domain.Rule{Labels: labels, MinConfidence: c.DetectionMinConfidence}
}
