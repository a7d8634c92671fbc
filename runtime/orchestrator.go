// Package runtime wires sources, the pipeline, and event sinks together
// under supervision. It orchestrates the system without containing business
// logic or domain rules.
package runtime

import (
	"context"
	"log/slog"

	"doorbell-lab/contract"
	"doorbell-lab/domain"
	"doorbell-lab/domain/event"
	"doorbell-lab/runtime/workers"
)

// Orchestrator owns the two channels of the daemon (artifacts in, events
// out) and the supervision tree. Workers are registered before Start; the
// fanout worker is built internally from the registered sinks.
type Orchestrator struct {
	log        *slog.Logger
	supervisor contract.ISupervisor
	artifacts  chan domain.Artifact
	events     chan event.DomainEvent
	sinks      []contract.EventSink
	workers    []contract.Worker
	done       chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, bufferSize int) *Orchestrator {
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		artifacts:  make(chan domain.Artifact, bufferSize),
		events:     make(chan event.DomainEvent, bufferSize),
		done:       make(chan struct{}),
	}
}

// Artifacts is the inbound channel source workers push into.
func (o *Orchestrator) Artifacts() chan domain.Artifact { return o.artifacts }

// Events is the outbound channel the pipeline emits into.
func (o *Orchestrator) Events() chan event.DomainEvent { return o.events }

func (o *Orchestrator) RegisterSinks(sinks ...contract.EventSink) {
	o.sinks = append(o.sinks, sinks...)
}

func (o *Orchestrator) RegisterWorkers(w ...contract.Worker) {
	o.workers = append(o.workers, w...)
}

// Start launches supervision in the background and returns immediately.
// Done() is closed once every worker has exited, either after Stop, after
// the parent context is canceled, or after a fatal source loss.
func (o *Orchestrator) Start(ctx context.Context) error {
	fanout := workers.NewEventFanout(o.log, o.events).Add(o.sinks...)
	o.supervisor.Add(o.workers...)
	o.supervisor.Add(fanout)

	go func() {
		defer close(o.done)
		o.supervisor.Run(ctx)
	}()

	o.log.Info("Orchestrator started", "workers", len(o.workers)+1, "sinks", len(o.sinks))
	return nil
}

func (o *Orchestrator) Done() <-chan struct{} { return o.done }

func (o *Orchestrator) Stop() {
	o.supervisor.Stop()
}
