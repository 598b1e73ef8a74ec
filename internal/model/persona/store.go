package persona

import "github.com/zhouzirui/z-interview/backend/internal/model/interview"

// Store exposes interviewer lookup for handlers and the ai service.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	ForScenario(scenario interview.Scenario, lang interview.Language) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the configured interviewers.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up an interviewer by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// ForScenario returns the interviewer for a scenario and language. When no exact
// language match exists the first persona of the scenario is used.
func (s *MemoryStore) ForScenario(scenario interview.Scenario, lang interview.Language) (Persona, bool) {
	var fallback *Persona
	for i := range s.items {
		item := s.items[i]
		if item.Scenario != scenario {
			continue
		}
		if item.Language == lang {
			return item, true
		}
		if fallback == nil {
			fallback = &s.items[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Persona{}, false
}

// Merge overlays overrides onto personas with matching ids (non-empty fields
// win) and appends new ones.
func (s *MemoryStore) Merge(overrides []Persona) {
	for _, o := range overrides {
		replaced := false
		for i := range s.items {
			if s.items[i].ID == o.ID {
				s.items[i] = overlay(s.items[i], o)
				replaced = true
				break
			}
		}
		if !replaced {
			s.items = append(s.items, o)
		}
	}
}

func overlay(base, o Persona) Persona {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&base.Name, o.Name)
	pick(&base.Title, o.Title)
	pick(&base.Tone, o.Tone)
	pick(&base.SystemPrompt, o.SystemPrompt)
	pick(&base.OpeningCue, o.OpeningCue)
	pick(&base.VoiceID, o.VoiceID)
	if o.Scenario != "" {
		base.Scenario = o.Scenario
	}
	if o.Language != "" {
		base.Language = o.Language
	}
	return base
}
