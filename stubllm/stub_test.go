package stubllm

import (
	"context"
	"testing"

	"saferoads/parser"
)

func TestStubIsDeterministicAndParseable(t *testing.T) {
	c := NewClient()
	img := []byte("same photo")

	first, err := c.AnalyzeImage(context.Background(), img, "image/jpeg", "prompt")
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	second, _ := c.AnalyzeImage(context.Background(), img, "image/jpeg", "prompt")
	if first != second {
		t.Errorf("expected identical replies, got %q and %q", first, second)
	}

	a, err := parser.ParseAssessment(first)
	if err != nil {
		t.Fatalf("ParseAssessment: %v", err)
	}
	if a.DamageScore < 0 || a.DamageScore > 100 {
		t.Errorf("score out of range: %d", a.DamageScore)
	}
	if a.DamageType == "" {
		t.Error("expected a damage type")
	}
}

func TestStubHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient().AnalyzeImage(ctx, nil, "", ""); err == nil {
		t.Error("expected context error")
	}
}
