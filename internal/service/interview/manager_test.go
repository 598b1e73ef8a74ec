package interview_test

import (
	"errors"
	"testing"

	model "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

func TestManagerCreateAppliesDefaults(t *testing.T) {
	mgr := interview.NewManager(interview.Options{}, model.Settings{QuestionCount: 3, Language: model.English})

	session := mgr.Create(model.Settings{Scenario: model.ScenarioAdvanced})
	settings := session.Settings()
	if settings.QuestionCount != 3 || settings.Language != model.English || settings.Scenario != model.ScenarioAdvanced {
		t.Fatalf("unexpected settings %+v", settings)
	}

	got, err := mgr.Get(session.ID())
	if err != nil || got != session {
		t.Fatalf("Get returned %v %v", got, err)
	}
}

func TestManagerGetNotFound(t *testing.T) {
	mgr := interview.NewManager(interview.Options{}, model.Settings{})
	if _, err := mgr.Get("missing"); !errors.Is(err, interview.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	session := mgr.Create(model.Settings{})
	mgr.Delete(session.ID())
	if _, err := mgr.Get(session.ID()); err == nil {
		t.Fatal("expected deleted session to be gone")
	}
}
