package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saferoads/llm"
	"saferoads/metrics"
	"saferoads/models"
	"saferoads/parser"

	"github.com/apex/log"
)

// Prompt is the single instruction sent along with every road photo.
const Prompt = `Analyze this road image for damage. Provide a JSON response with:
{
  "damage_score": <number 0-100, where 100 is severe damage>,
  "damage_type": "<pothole/crack/flooding/debris/other>",
  "severity": "<Critical/Moderate/Minor>",
  "description": "<brief description>",
  "recommended_action": "<action needed>"
}`

var ErrNotConfigured = errors.New("no inference service configured")

// Assessor is the one place both the HTTP scan route and the portal turn an image
// into an Assessment.
type Assessor struct {
	client    llm.Client
	simulator *Simulator
}

// NewAssessor builds an assessor. A nil client means no credential is configured.
func NewAssessor(client llm.Client, simulator *Simulator) *Assessor {
	if simulator == nil {
		simulator = NewSimulator(time.Now().UnixNano())
	}
	return &Assessor{client: client, simulator: simulator}
}

func (a *Assessor) Configured() bool {
	return a.client != nil
}

func (a *Assessor) Source() string {
	if a.client == nil {
		return "Simulator"
	}
	return a.client.SourceName()
}

// Assess calls the inference service and parses its reply. Any failure is returned.
func (a *Assessor) Assess(ctx context.Context, image []byte, mimeType string) (*models.Assessment, error) {
	if a.client == nil {
		metrics.AssessmentsTotal.WithLabelValues("none", "error").Inc()
		return nil, ErrNotConfigured
	}

	source := a.client.SourceName()
	start := time.Now()
	reply, err := a.client.AnalyzeImage(ctx, image, mimeType, Prompt)
	metrics.ObserveSince(metrics.AssessmentDurationSeconds.WithLabelValues(source), start)
	if err != nil {
		metrics.AssessmentsTotal.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("%s analysis failed: %w", source, err)
	}

	result, err := parser.ParseAssessment(reply)
	if err != nil {
		metrics.AssessmentsTotal.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("failed to parse %s reply: %w", source, err)
	}

	metrics.AssessmentsTotal.WithLabelValues(source, "ok").Inc()
	return result, nil
}

// AssessOrSimulate never fails: when the strict path errors for any reason the
// simulator answers instead. The second return value reports whether that happened.
func (a *Assessor) AssessOrSimulate(ctx context.Context, image []byte, mimeType string) (models.Assessment, bool) {
	result, err := a.Assess(ctx, image, mimeType)
	if err == nil {
		return *result, false
	}

	if errors.Is(err, ErrNotConfigured) {
		log.Warn("Inference service not configured, using simulated assessment")
	} else {
		log.WithError(err).Warn("Assessment failed, using simulated assessment")
	}
	metrics.AssessmentsTotal.WithLabelValues("Simulator", "simulated").Inc()
	return a.simulator.Next(), true
}
