// Package integration persists validated findings so later rounds and
// sibling systems can retrieve them. The sink records what a finding is
// meant to change downstream but never applies that change itself; routing
// tables and prompt libraries move only after human review of the queued
// artifact.
package integration

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/danielpatrickdp/exploration-engine/internal/collab"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
	"github.com/danielpatrickdp/exploration-engine/internal/telemetry"
)

// #region interfaces

// FindingRecorder links an integrated finding into the findings graph.
type FindingRecorder interface {
	RecordFinding(findingID, domain string, relatedDomains []string) error
}

// ArtifactQueuer parks a reviewable output for human decision.
type ArtifactQueuer interface {
	Add(kind, content, hypothesisID string) (string, error)
}

// #endregion interfaces

// #region sink

// Sink writes validated findings to the vector store, links them into the
// findings graph and queues reviewable artifacts.
type Sink struct {
	vectors collab.VectorStore
	graph   FindingRecorder
	queue   ArtifactQueuer
	bus     *telemetry.Bus
	domains []string
}

// NewSink wires a sink. graph and queue may be nil when the deployment has
// no sqlite store; those steps are then skipped.
func NewSink(vectors collab.VectorStore, graph FindingRecorder, queue ArtifactQueuer, bus *telemetry.Bus, knownDomains []string) *Sink {
	return &Sink{
		vectors: vectors,
		graph:   graph,
		queue:   queue,
		bus:     bus,
		domains: knownDomains,
	}
}

// #endregion sink

// #region integrate

// Integrate persists one validated finding. The vector store write is the
// only step that can fail the integration; graph linking and artifact
// queueing are best-effort.
func (s *Sink) Integrate(ctx context.Context, h *hypothesis.Hypothesis) error {
	if h.Result == nil {
		return fmt.Errorf("integrate %s: no result", h.ID)
	}

	doc := composeDocument(h)
	meta := map[string]string{
		"source":          "exploration_engine",
		"hypothesis_id":   h.ID,
		"hypothesis_type": string(h.Type),
		"target_area":     h.TargetArea,
		"confidence":      fmt.Sprintf("%.2f", h.Result.Confidence),
		"integrated_at":   time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.vectors.Add(ctx, doc, meta); err != nil {
		return fmt.Errorf("store finding %s: %w", h.ID, err)
	}

	s.emitIntendedEffect(h)

	if s.graph != nil {
		related := relatedDomains(h, s.domains)
		if err := s.graph.RecordFinding(h.ID, h.TargetArea, related); err != nil {
			log.Printf("findings graph link for %s: %v", h.ID, err)
		}
	}

	if s.queue != nil {
		s.queueArtifact(h)
	}
	return nil
}

// #endregion integrate

// #region compose

// composeDocument flattens a result into one retrievable text block.
func composeDocument(h *hypothesis.Hypothesis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exploration finding (%s, %s): %s\n\n", h.Type, h.TargetArea, h.Description)
	if h.Result.Findings != "" {
		b.WriteString(h.Result.Findings)
		b.WriteString("\n\n")
	}
	if len(h.Result.Metrics) > 0 {
		keys := make([]string, 0, len(h.Result.Metrics))
		for k := range h.Result.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Metrics:")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%.3f", k, h.Result.Metrics[k])
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Confidence: %.2f. %s", h.Result.Confidence, h.Result.Reasoning)
	return b.String()
}

// relatedDomains finds known domains the finding text mentions, beyond the
// target area itself.
func relatedDomains(h *hypothesis.Hypothesis, domains []string) []string {
	text := strings.ToLower(h.Description + " " + h.Result.Findings)
	var out []string
	for _, d := range domains {
		if d == h.TargetArea {
			continue
		}
		if strings.Contains(text, strings.ReplaceAll(d, "_", " ")) || strings.Contains(text, d) {
			out = append(out, d)
		}
	}
	return out
}

// #endregion compose

// #region intended-effect

// emitIntendedEffect records what this finding should change downstream.
// The change itself is never applied here.
func (s *Sink) emitIntendedEffect(h *hypothesis.Hypothesis) {
	var effect string
	switch h.Type {
	case hypothesis.TypeProviderComparison:
		effect = "inform provider routing for " + h.TargetArea
	case hypothesis.TypeStrategyOptimization:
		effect = "revise task strategy for " + h.TargetArea
	case hypothesis.TypeCapabilityDiscovery:
		effect = "extend capability map for " + h.TargetArea
	case hypothesis.TypeTransferLearning:
		effect = "register transferable technique for " + h.TargetArea
	case hypothesis.TypeAdversarialProbe:
		effect = "record robustness gap in " + h.TargetArea
	case hypothesis.TypeMutationExperiment:
		effect = "offer prompt variant for " + h.TargetArea
	case hypothesis.TypeCrossDomain:
		effect = "strengthen cross-domain bridge from " + h.TargetArea
	default:
		effect = "archive finding for " + h.TargetArea
	}

	s.bus.Emit(telemetry.Event{
		Type:         telemetry.EventFindingIntegrated,
		HypothesisID: h.ID,
		ArmID:        h.ArmID(),
		Reason:       effect,
		Fields: map[string]any{
			"intended_effect": effect,
			"applied":         false,
		},
	})
}

// #endregion intended-effect

// #region artifacts

// queueArtifact parks the reviewable output certain hypothesis types carry.
// Not every type produces one.
func (s *Sink) queueArtifact(h *hypothesis.Hypothesis) {
	var kind string
	switch h.Type {
	case hypothesis.TypeMutationExperiment, hypothesis.TypeStrategyOptimization:
		kind = "prompt_variant"
	case hypothesis.TypeProviderComparison:
		kind = "routing_suggestion"
	case hypothesis.TypeCapabilityDiscovery, hypothesis.TypeTransferLearning:
		kind = "capability_note"
	default:
		return
	}

	id, err := s.queue.Add(kind, h.Result.Findings, h.ID)
	if err != nil {
		log.Printf("queue %s artifact for %s: %v", kind, h.ID, err)
		return
	}
	s.bus.Emit(telemetry.Event{
		Type:         telemetry.EventArtifactQueued,
		HypothesisID: h.ID,
		ArmID:        h.ArmID(),
		Fields:       map[string]any{"artifact_id": id, "kind": kind},
	})
}

// #endregion artifacts
