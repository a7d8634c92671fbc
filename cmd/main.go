package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"doorbell-lab/contract"
	"doorbell-lab/doorbell"
	"doorbell-lab/internal"
	"doorbell-lab/observability"
	"doorbell-lab/repositories"
	"doorbell-lab/runtime"
	"doorbell-lab/runtime/workers"
	"doorbell-lab/sink"
	"doorbell-lab/vision"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the daemon lifecycle, and
// centralizes error reporting, so every defer (badger close in particular)
// executes before the process exits.
func run() error {
	// 1. Configuration: .env, environment, then CLI flags on top
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	motionDir := flag.String("motion-output-dir", config.MotionOutputDir, "directory the motion daemon writes snapshots to")
	streamAddr := flag.String("stream-addr", config.StreamAddr, "camera snapshot HTTP endpoint (alternative to the directory)")
	keyfile := flag.String("json-keyfile", config.JSONKeyfile, "path to a Google Cloud service account credentials JSON")
	webhookURL := flag.String("webhook-url", config.WebhookURL, "incoming webhook URL to ring")
	labels := flag.String("labels", config.DetectionLabels, "labels that trigger a ring, separated by ';'")
	minConfidence := flag.Float64("min-confidence", config.DetectionMinConfidence, "minimum detection confidence threshold")
	ringCooldown := flag.Duration("ring-cooldown", config.RingCooldown, "quiet period after a ring")
	deleteAfter := flag.Bool("delete-after", config.DeleteAfterProcessing, "delete snapshots once processed")
	journalPath := flag.String("journal-path", config.JournalPath, "BadgerDB path for the ring journal (empty disables it)")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	config.MotionOutputDir = *motionDir
	config.StreamAddr = *streamAddr
	config.JSONKeyfile = *keyfile
	config.WebhookURL = *webhookURL
	config.DetectionLabels = *labels
	config.DetectionMinConfidence = *minConfidence
	config.RingCooldown = *ringCooldown
	config.DeleteAfterProcessing = *deleteAfter
	config.JournalPath = *journalPath
	if *verbose {
		config.LogLevel = "DEBUG"
	}

	// A broken config must fail here, before anything is started.
	if err := config.Validate(); err != nil {
		return err
	}

	log := internal.GetLoggerFromString(config.LogLevel)
	counter := observability.NewPipelineCounter()

	// 2. Vision client & doorbell
	httpClient := &http.Client{Timeout: config.HTTPTimeout}
	tokens, err := vision.NewTokenSource(config.JSONKeyfile, httpClient)
	if err != nil {
		return err
	}
	classifier := vision.NewClient(log, config.VisionEndpoint, httpClient, tokens,
		config.VisionMaxResults, config.ClassifyRetries)
	bell := doorbell.NewSlackDoorbell(log, config.WebhookURL, httpClient)

	// 3. Orchestration
	sup := workers.NewSupervisor(log)
	orchestrator := runtime.NewOrchestrator(log, sup, config.BufferSize)
	orchestrator.RegisterSinks(sink.NewLogSink(log))

	// 4. Optional ring journal (BadgerDB)
	if config.JournalPath != "" {
		db, err := badger.Open(badger.DefaultOptions(config.JournalPath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return fmt.Errorf("journal opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing ring journal...")
			_ = db.Close()
		}()
		journal := repositories.NewRingJournal(db, log, nil)
		orchestrator.RegisterSinks(sink.NewJournalSink(journal, log))
	}

	// 5. Workers: one source, the pipeline, the heartbeat
	var source contract.Worker
	if config.StreamAddr != "" {
		source = workers.NewStreamPollerWorker(log, config.StreamAddr,
			config.StreamPollInterval, httpClient, orchestrator.Artifacts(), counter)
	} else {
		source = workers.NewSnapshotWatcherWorker(log, config.MotionOutputDir,
			config.WatchSettleTime, orchestrator.Artifacts(), counter)
	}

	pipeline := workers.NewPipelineWorker(log, classifier, bell, config.Rule(),
		config.RingCooldown, config.DeleteAfterProcessing,
		orchestrator.Artifacts(), orchestrator.Events(), counter)
	heartbeat := workers.NewHeartbeatWorker(log, config.HeartbeatInterval, counter)

	orchestrator.RegisterWorkers(source, pipeline, heartbeat)

	// 6. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}

	// 7. Wait for a signal or for the supervision tree to die on its own
	// (fatal source loss ends it without any signal).
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case <-orchestrator.Done():
		log.Info("All workers exited")
	}

	orchestrator.Stop()
	<-orchestrator.Done()
	log.Info("Program stopped cleanly")

	return nil
}
