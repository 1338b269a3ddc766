package gateway

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"wellness-hub/internal/domain"
)

const demoDisclaimer = "This is demo data. Consult healthcare professionals for real assessments."

// Fixture produces the demo payload for an endpoint.
type Fixture func(endpoint string) any

// Static returns a fixture that always yields v.
func Static(v any) Fixture {
	return func(string) any { return v }
}

type prefixFixture struct {
	method  string
	prefix  string
	fixture Fixture
}

// Fixtures maps (method, endpoint) pairs to demo payloads. Exact matches win
// over prefix matches; anything else gets the fallback.
type Fixtures struct {
	mu       sync.RWMutex
	exact    map[string]Fixture
	prefixes []prefixFixture
	fallback Fixture
}

// NewFixtures creates an empty set answering unknown endpoints with fallback.
func NewFixtures(fallback Fixture) *Fixtures {
	if fallback == nil {
		fallback = Static(defaultFixture())
	}
	return &Fixtures{
		exact:    make(map[string]Fixture),
		fallback: fallback,
	}
}

// Register binds a fixture to an exact endpoint.
func (f *Fixtures) Register(method, endpoint string, fixture Fixture) *Fixtures {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exact[fixtureKey(method, endpoint)] = fixture
	return f
}

// RegisterPrefix binds a fixture to every endpoint starting with prefix.
func (f *Fixtures) RegisterPrefix(method, prefix string, fixture Fixture) *Fixtures {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefixFixture{
		method:  strings.ToUpper(method),
		prefix:  prefix,
		fixture: fixture,
	})
	return f
}

// Lookup always returns a fixture.
func (f *Fixtures) Lookup(method, endpoint string) Fixture {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if fx, ok := f.exact[fixtureKey(method, endpoint)]; ok {
		return fx
	}
	method = strings.ToUpper(method)
	for _, p := range f.prefixes {
		if p.method == method && strings.HasPrefix(endpoint, p.prefix) {
			return p.fixture
		}
	}
	return f.fallback
}

func fixtureKey(method, endpoint string) string {
	return strings.ToUpper(method) + " " + endpoint
}

func defaultFixture() map[string]any {
	return map[string]any{
		"message": "Demo mode - feature available with full backend",
		"status":  "success",
	}
}

// DefaultFixtures is the demo data set the application ships with.
func DefaultFixtures() *Fixtures {
	demo := domain.DemoUser()
	auth := domain.AuthResponse{
		Token:    domain.DemoLoginToken,
		Username: demo.Username,
		Email:    demo.Email,
	}
	journal := func(string) any {
		return domain.Journal{
			ID:        "1",
			Title:     "Demo Journal Entry",
			Content:   "This is a demo journal entry for demonstration purposes.",
			Mood:      "happy",
			CreatedAt: time.Now().UTC(),
		}
	}

	return NewFixtures(nil).
		Register(http.MethodPost, "/auth/login", Static(auth)).
		Register(http.MethodPost, "/auth/register", Static(auth)).
		Register(http.MethodGet, "/auth/me", Static(demo)).
		Register(http.MethodGet, "/journals", func(endpoint string) any {
			return []any{journal(endpoint)}
		}).
		RegisterPrefix(http.MethodGet, "/journals/", journal).
		Register(http.MethodPost, "/health/heart-predict", Static(domain.RiskAssessment{
			Prediction:      0,
			Probability:     0.25,
			Risk:            "Low Risk",
			Confidence:      0.85,
			Recommendations: []string{"Maintain healthy lifestyle", "Regular exercise", "Balanced diet"},
			Disclaimer:      demoDisclaimer,
		})).
		Register(http.MethodPost, "/health/diabetes-predict", Static(domain.RiskAssessment{
			Prediction:      0,
			Probability:     0.20,
			Risk:            "Low Risk",
			Confidence:      0.80,
			Recommendations: []string{"Continue healthy habits", "Monitor blood sugar regularly"},
			Disclaimer:      demoDisclaimer,
		}))
}
