package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"saferoads/assessment"
	"saferoads/intake"
	"saferoads/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply string
	err   error
	mime  string
}

func (f *fakeLLM) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	f.mime = mimeType
	return f.reply, f.err
}

func (f *fakeLLM) SourceName() string { return "Fake" }

type memStore struct {
	scores []int
	err    error
}

func (m *memStore) InsertReport(ctx context.Context, score int) error {
	if m.err != nil {
		return m.err
	}
	m.scores = append(m.scores, score)
	return nil
}

func (m *memStore) ListReports(ctx context.Context) ([]models.StoredReport, error) {
	return nil, nil
}

type recorder struct {
	escalations []models.Escalation
	published   []interface{}
	publishErr  error
}

func (r *recorder) BroadcastEscalation(e models.Escalation) { r.escalations = append(r.escalations, e) }

func (r *recorder) Publish(ctx context.Context, msg interface{}) error {
	r.published = append(r.published, msg)
	return r.publishErr
}

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func newService(llm *fakeLLM, store *memStore, rec *recorder) *ScanService {
	s := NewScanService(assessment.NewAssessor(llm, assessment.NewSimulator(1)), store, 75, 1024).
		WithBroadcaster(rec).
		WithPublisher(rec)
	s.now = func() time.Time { return time.UnixMilli(1767700111222) }
	return s
}

func TestScanEscalates(t *testing.T) {
	llm := &fakeLLM{reply: `{"damage_score": 90}`}
	store := &memStore{}
	rec := &recorder{publishErr: errors.New("broker down")}

	res, err := newService(llm, store, rec).Scan(context.Background(), Upload{
		Type:     "application/octet-stream",
		Body:     bytes.NewReader(pngBytes(t)),
		Location: &models.Location{Lat: 22.5726, Lng: 88.3639},
	})

	require.NoError(t, err)
	assert.True(t, res.AutoReported)
	assert.Equal(t, 90, res.Assessment.DamageScore)
	assert.Equal(t, []int{90}, store.scores)
	assert.Equal(t, "image/png", llm.mime)

	require.NotNil(t, res.Escalation)
	assert.Equal(t, "111222", res.Escalation.ReportID)
	assert.Equal(t, "22.5726, 88.3639", res.Escalation.Location)
	assert.Equal(t, models.StatusPriority, res.Escalation.Status)
	assert.Len(t, rec.escalations, 1)
	assert.Len(t, rec.published, 1, "publish failures must not fail the scan")
}

func TestScanAtThresholdIsNotEscalated(t *testing.T) {
	store := &memStore{}
	rec := &recorder{}

	res, err := newService(&fakeLLM{reply: `{"damage_score": 75}`}, store, rec).Scan(context.Background(), Upload{
		Type: "image/png",
		Body: bytes.NewReader(pngBytes(t)),
	})

	require.NoError(t, err)
	assert.False(t, res.AutoReported)
	assert.Nil(t, res.Escalation)
	assert.Equal(t, []int{75}, store.scores)
	assert.Empty(t, rec.escalations)
}

func TestScanFailures(t *testing.T) {
	testCases := []struct {
		name    string
		llm     *fakeLLM
		store   *memStore
		upload  Upload
		wantErr error
	}{
		{
			name:    "unsupported type",
			llm:     &fakeLLM{reply: `{"damage_score": 1}`},
			store:   &memStore{},
			upload:  Upload{Type: "text/plain", Body: strings.NewReader("hello")},
			wantErr: intake.ErrUnsupportedType,
		},
		{
			name:    "upstream failure",
			llm:     &fakeLLM{err: errors.New("503")},
			store:   &memStore{},
			upload:  Upload{Type: "image/png", Body: bytes.NewReader(pngBytes(t))},
			wantErr: nil,
		},
		{
			name:    "parse failure",
			llm:     &fakeLLM{reply: "no idea"},
			store:   &memStore{},
			upload:  Upload{Type: "image/png", Body: bytes.NewReader(pngBytes(t))},
			wantErr: nil,
		},
		{
			name:    "store failure",
			llm:     &fakeLLM{reply: `{"damage_score": 10}`},
			store:   &memStore{err: errors.New("locked")},
			upload:  Upload{Type: "image/png", Body: bytes.NewReader(pngBytes(t))},
			wantErr: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newService(tc.llm, tc.store, &recorder{}).Scan(context.Background(), tc.upload)
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.Empty(t, tc.store.scores)
		})
	}
}

func TestScanUnconfigured(t *testing.T) {
	store := &memStore{}
	s := NewScanService(assessment.NewAssessor(nil, nil), store, 75, 1024)

	_, err := s.Scan(context.Background(), Upload{Type: "image/png", Body: bytes.NewReader(pngBytes(t))})

	assert.ErrorIs(t, err, assessment.ErrNotConfigured)
	assert.Empty(t, store.scores)
}
