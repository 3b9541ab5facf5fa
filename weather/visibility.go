package weather

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/apex/log"
)

// VisibilityLevel grades how safe it is to drive at a given visibility.
type VisibilityLevel struct {
	Level  string `json:"level"`
	Color  string `json:"color"`
	Action string `json:"action"`
}

func VisibilityLevelFor(km float64) VisibilityLevel {
	switch {
	case km < 0.5:
		return VisibilityLevel{"Critical", "red", "Avoid driving"}
	case km < 1:
		return VisibilityLevel{"Very Low", "orange", "Drive with extreme caution"}
	case km < 2:
		return VisibilityLevel{"Low", "yellow", "Reduce speed"}
	case km < 5:
		return VisibilityLevel{"Moderate", "blue", "Drive carefully"}
	default:
		return VisibilityLevel{"Good", "green", "Normal driving conditions"}
	}
}

// IsLowVisibility is true strictly below the threshold.
func IsLowVisibility(km, thresholdKm float64) bool {
	return km < thresholdKm
}

// Alert is raised when visibility drops below the configured threshold.
type Alert struct {
	Message   string    `json:"message"`
	Details   string    `json:"details"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAlert(c Conditions) Alert {
	return Alert{
		Message:   "CAUTION: Low Visibility Reported in Your Area",
		Details:   fmt.Sprintf("Visibility: %.2f km | %s - %s", c.VisibilityKm, c.Weather, c.Description),
		Level:     VisibilityLevelFor(c.VisibilityKm).Level,
		Timestamp: c.Timestamp,
	}
}

type scenario struct {
	visibility  float64
	weather     string
	description string
	temp        float64
}

var scenarios = []scenario{
	{0.5, "Fog", "Dense fog", 18},
	{0.8, "Mist", "Light mist", 20},
	{5, "Clear", "Clear sky", 25},
	{8, "Clouds", "Few clouds", 22},
	{10, "Clear", "Clear sky", 28},
}

// Simulator produces plausible conditions when the provider is unavailable.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(seed int64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(seed))}
}

func (s *Simulator) Next() Conditions {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := scenarios[s.rng.Intn(len(scenarios))]
	return Conditions{
		VisibilityKm: sc.visibility,
		Weather:      sc.weather,
		Description:  sc.description,
		TemperatureC: sc.temp,
		Humidity:     65 + s.rng.Intn(20),
		WindSpeed:    5 + s.rng.Float64()*10,
		Simulated:    true,
		Timestamp:    time.Now(),
	}
}

// Monitor checks visibility at a location, falling back to the simulator.
type Monitor struct {
	client      *Client
	simulator   *Simulator
	thresholdKm float64
}

func NewMonitor(client *Client, simulator *Simulator, thresholdKm float64) *Monitor {
	return &Monitor{client: client, simulator: simulator, thresholdKm: thresholdKm}
}

func (m *Monitor) ThresholdKm() float64 {
	return m.thresholdKm
}

// Check returns current conditions and, when visibility is low, an alert.
func (m *Monitor) Check(ctx context.Context, lat, lon float64) (Conditions, *Alert) {
	var cond Conditions
	if current, err := m.client.CurrentConditions(ctx, lat, lon); err == nil {
		cond = *current
	} else {
		if !errors.Is(err, ErrNotConfigured) {
			log.WithError(err).Warn("Weather fetch failed, using simulated conditions")
		}
		cond = m.simulator.Next()
	}

	if !IsLowVisibility(cond.VisibilityKm, m.thresholdKm) {
		return cond, nil
	}
	alert := NewAlert(cond)
	log.WithFields(log.Fields{
		"visibility_km": cond.VisibilityKm,
		"weather":       cond.Weather,
	}).Warn("Low visibility alert triggered")
	return cond, &alert
}
