package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"saferoads/assessment"
	"saferoads/intake"
	"saferoads/metrics"
	"saferoads/models"
	"saferoads/policy"

	"github.com/apex/log"
)

// ReportStore persists damage scores.
type ReportStore interface {
	InsertReport(ctx context.Context, damageScore int) error
	ListReports(ctx context.Context) ([]models.StoredReport, error)
}

// Publisher forwards escalation events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, message interface{}) error
}

// Broadcaster pushes escalation events to live listeners.
type Broadcaster interface {
	BroadcastEscalation(e models.Escalation)
}

// Upload is one submitted file as received from the transport.
type Upload struct {
	Name     string
	Type     string
	Body     io.Reader
	Location *models.Location
}

type ScanResult struct {
	Assessment   models.Assessment
	AutoReported bool
	Escalation   *models.Escalation
}

// ScanService runs the server-side intake flow: validate, assess, decide, store, notify.
type ScanService struct {
	assessor    *assessment.Assessor
	store       ReportStore
	threshold   int
	maxDim      int
	publisher   Publisher
	broadcaster Broadcaster
	now         func() time.Time
}

func NewScanService(assessor *assessment.Assessor, store ReportStore, threshold, maxDim int) *ScanService {
	return &ScanService{
		assessor:  assessor,
		store:     store,
		threshold: threshold,
		maxDim:    maxDim,
		now:       time.Now,
	}
}

// WithPublisher enables broker notifications for escalations.
func (s *ScanService) WithPublisher(p Publisher) *ScanService {
	s.publisher = p
	return s
}

// WithBroadcaster enables websocket notifications for escalations.
func (s *ScanService) WithBroadcaster(b Broadcaster) *ScanService {
	s.broadcaster = b
	return s
}

// Threshold is the score above which scans are escalated.
func (s *ScanService) Threshold() int {
	return s.threshold
}

// Scan assesses one upload. The score is stored before Scan returns; any failure
// along the way is returned without falling back to simulation.
func (s *ScanService) Scan(ctx context.Context, up Upload) (*ScanResult, error) {
	data, err := intake.Read(ctx, up.Body, intake.MaxFileSize)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	mimeType := intake.DetectType(up.Type, data)
	if err := intake.Validate(intake.File{Name: up.Name, Type: mimeType, Size: int64(len(data))}); err != nil {
		metrics.ScansTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	payload, payloadType, err := intake.Normalize(data, mimeType, s.maxDim)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	result, err := s.assessor.Assess(ctx, payload, payloadType)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	if err := s.store.InsertReport(ctx, result.DamageScore); err != nil {
		metrics.ScansTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to record report: %w", err)
	}

	out := &ScanResult{
		Assessment:   *result,
		AutoReported: policy.ShouldEscalate(result.DamageScore, s.threshold),
	}
	if !out.AutoReported {
		metrics.ScansTotal.WithLabelValues("recorded").Inc()
		return out, nil
	}

	metrics.ScansTotal.WithLabelValues("escalated").Inc()
	metrics.EscalationsTotal.Inc()
	e := policy.NewEscalation(*result, s.threshold, s.assessor.Source(), s.now(), up.Location)
	out.Escalation = &e
	s.notify(ctx, e)
	return out, nil
}

func (s *ScanService) notify(ctx context.Context, e models.Escalation) {
	log.WithFields(log.Fields{
		"report_id":    e.ReportID,
		"damage_score": e.DamageScore,
		"location":     e.Location,
	}).Info("Damage auto-reported")

	if s.broadcaster != nil {
		s.broadcaster.BroadcastEscalation(e)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, e); err != nil {
			metrics.EscalationPublishErrorTotal.Inc()
			log.WithError(err).Warn("Failed to publish escalation")
		}
	}
}

// Reports lists stored reports, newest first.
func (s *ScanService) Reports(ctx context.Context) ([]models.StoredReport, error) {
	return s.store.ListReports(ctx)
}
