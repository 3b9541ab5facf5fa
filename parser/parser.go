package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"saferoads/models"
)

var (
	ErrNoJSON       = errors.New("no JSON object found in model reply")
	ErrMissingScore = errors.New("damage_score is missing")
	ErrInvalidScore = errors.New("damage_score is not a number in [0,100]")
)

// jsonObject is greedy: it spans the first '{' to the last '}' of the reply.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON returns the JSON-looking span of a free-text model reply.
func ExtractJSON(text string) (string, error) {
	match := jsonObject.FindString(text)
	if match == "" {
		return "", ErrNoJSON
	}
	return match, nil
}

type rawAssessment struct {
	DamageScore       interface{} `json:"damage_score"`
	DamageType        string      `json:"damage_type"`
	Severity          string      `json:"severity"`
	Description       string      `json:"description"`
	RecommendedAction string      `json:"recommended_action"`
}

// ParseAssessment decodes the embedded object of a model reply. damage_score is the
// only required field; a missing or unrecognised severity is derived from the score.
func ParseAssessment(text string) (*models.Assessment, error) {
	jsonText, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var raw rawAssessment
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode assessment JSON: %w", err)
	}

	score, err := parseScore(raw.DamageScore)
	if err != nil {
		return nil, err
	}

	a := &models.Assessment{
		DamageScore:       score,
		DamageType:        strings.TrimSpace(raw.DamageType),
		Severity:          normalizeSeverity(raw.Severity),
		Description:       strings.TrimSpace(raw.Description),
		RecommendedAction: strings.TrimSpace(raw.RecommendedAction),
	}
	if !a.Severity.Valid() {
		a.Severity = models.SeverityFor(score)
	}
	return a, nil
}

func parseScore(v interface{}) (int, error) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, ErrMissingScore
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidScore, val)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, v)
	}

	if math.IsNaN(f) || f < 0 || f > 100 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, f)
	}
	return int(math.Round(f)), nil
}

func normalizeSeverity(s string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return models.SeverityCritical
	case "moderate":
		return models.SeverityModerate
	case "minor":
		return models.SeverityMinor
	}
	return ""
}
