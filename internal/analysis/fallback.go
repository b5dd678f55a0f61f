package analysis

import (
	"math/rand"
	"sync"
	"time"

	"github.com/example/agrisense/internal/models"
)

// FallbackCrops lists the crops the local generator guesses from.
var FallbackCrops = []string{"tomato", "maize", "cassava", "pepper", "lettuce", "strawberry", "wheat"}

// FallbackDiseases maps each fallback crop to the disease reported when the
// guess is diseased.
var FallbackDiseases = map[string]string{
	"tomato":     "late blight",
	"maize":      "leaf streak virus",
	"cassava":    "mosaic disease",
	"pepper":     "bacterial spot",
	"lettuce":    "downy mildew",
	"strawberry": "powdery mildew",
	"wheat":      "leaf rust",
}

// healthy 3 : at-risk 1 : diseased 1
var fallbackHealth = []models.HealthStatus{
	models.HealthHealthy, models.HealthHealthy, models.HealthHealthy,
	models.HealthAtRisk,
	models.HealthDiseased,
}

const stressSigns = "early signs of stress"

var (
	fallbackHealthyCare = []string{
		"Continue regular watering according to crop needs",
		"Maintain appropriate sunlight exposure",
		"Apply balanced fertilizer as needed",
	}
	fallbackAtRiskCare = []string{
		"Increase nitrogen fertilization",
		"Adjust watering frequency",
		"Monitor closely for the next 48 hours",
	}
	fallbackTreatment = []string{
		"Remove affected plant parts",
		"Apply appropriate fungicide/pesticide",
		"Improve air circulation around plants",
		"Adjust watering practices to avoid leaf wetness",
		"Consider crop rotation in the next season",
	}
)

// Fallback produces plausible random diagnoses. It is safe for concurrent use.
type Fallback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallback returns a generator driven by rng, or by a time-seeded source
// when rng is nil.
func NewFallback(rng *rand.Rand) *Fallback {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Fallback{rng: rng}
}

// Diagnose returns a random diagnosis. It never fails.
func (f *Fallback) Diagnose() Diagnosis {
	f.mu.Lock()
	status := fallbackHealth[f.rng.Intn(len(fallbackHealth))]
	crop := FallbackCrops[f.rng.Intn(len(FallbackCrops))]
	f.mu.Unlock()

	d := Diagnosis{CropName: crop, HealthStatus: status, DiseaseName: noDisease}
	switch status {
	case models.HealthDiseased:
		d.DiseaseName = FallbackDiseases[crop]
		d.Recommendations = append([]string(nil), fallbackTreatment...)
	case models.HealthAtRisk:
		d.DiseaseName = stressSigns
		d.Recommendations = append([]string(nil), fallbackAtRiskCare...)
	default:
		d.Recommendations = append([]string(nil), fallbackHealthyCare...)
	}
	return d
}
