package contract

import (
	"context"
	"encoding/json"

	"pv-analysis-be/internal/entity"
)

// StickyRepository is the durable mirror for the state slices that survive
// page reloads and project switches: settings, current scenario and the
// active project identity. Settings and scenario are session-scoped, not
// project-scoped; they are never touched by a data clear.
type StickyRepository interface {
	SaveSettings(ctx context.Context, settings json.RawMessage) error
	LoadSettings(ctx context.Context) (json.RawMessage, bool, error)

	SaveScenario(ctx context.Context, scenario entity.Scenario) error
	LoadScenario(ctx context.Context) (entity.Scenario, bool, error)

	SaveProject(ctx context.Context, identity entity.ProjectIdentity) error
	LoadProject(ctx context.Context) (*entity.ProjectIdentity, error)
	ClearProject(ctx context.Context) error
}
