package suggest

import "context"

// MockProvider is a test double for suggestion providers.
type MockProvider struct {
	Suggestions []Suggestion
	Err         error
	Delay       func(ctx context.Context) error // optional, simulates latency
	LastContext *StudyContext                   // captures the last request for inspection
}

// NewMockProvider creates a MockProvider returning the given suggestions.
func NewMockProvider(suggestions ...Suggestion) *MockProvider {
	return &MockProvider{Suggestions: suggestions}
}

func (m *MockProvider) Suggest(ctx context.Context, sc StudyContext) ([]Suggestion, error) {
	m.LastContext = &sc
	if m.Delay != nil {
		if err := m.Delay(ctx); err != nil {
			return nil, err
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Suggestions, nil
}
