package contract

import (
	"context"
	"encoding/json"

	"pv-analysis-be/internal/model"

	"github.com/google/uuid"
)

// Slice names are the ProjectRecord column identities used by UpdateSlice.
// They mirror the shared-state field names.
const (
	SliceConsumptionData      = "consumptionData"
	SliceRawConsumptionSeries = "rawConsumptionSeries"
	SliceAnalysisResults      = "analysisResults"
	SlicePVConfiguration      = "pvConfiguration"
	SliceHourlyProduction     = "hourlyProduction"
	SliceMasterVariant        = "masterVariant"
	SliceMasterVariantKey     = "masterVariantKey"
	SliceEconomics            = "economics"
	SliceSettings             = "settings"
	SliceCurrentScenario      = "currentScenario"
	SliceYearCoverage         = "analyticalYearCoverage"
)

// KnownSlice reports whether name is a persistable slice identity.
func KnownSlice(name string) bool {
	switch name {
	case SliceConsumptionData, SliceRawConsumptionSeries, SliceAnalysisResults,
		SlicePVConfiguration, SliceHourlyProduction, SliceMasterVariant,
		SliceMasterVariantKey, SliceEconomics, SliceSettings,
		SliceCurrentScenario, SliceYearCoverage:
		return true
	}
	return false
}

type ProjectRepository interface {
	Create(ctx context.Context, record *model.ProjectRecord) error
	FindById(ctx context.Context, id uuid.UUID) (*model.ProjectRecord, error)
	FindAll(ctx context.Context) ([]*model.ProjectRecord, error)
	// UpdateSlice overwrites exactly one JSON slice column of the record.
	UpdateSlice(ctx context.Context, id uuid.UUID, slice string, payload json.RawMessage) error
	Delete(ctx context.Context, id uuid.UUID) error
}
