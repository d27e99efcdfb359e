package message

import (
	"encoding/json"

	"pv-analysis-be/internal/entity"

	"github.com/google/uuid"
)

// DataUploadedPayload carries the upload summary from the upload module.
type DataUploadedPayload struct {
	Filename string               `json:"filename" validate:"required"`
	Rows     int                  `json:"rows" validate:"gt=0"`
	Year     int                  `json:"year" validate:"gte=1990,lte=2100"`
	Coverage *entity.YearCoverage `json:"coverage,omitempty"`
}

// AnalysisCompletePayload carries the analysis triad produced by the PV
// calculation module. Results and config stay opaque to the shell.
type AnalysisCompletePayload struct {
	FullResults json.RawMessage `json:"fullResults" validate:"required"`
	PVConfig    json.RawMessage `json:"pvConfig" validate:"required"`
	HourlyData  []float64       `json:"hourlyData" validate:"required,max=8760"`
}

// MasterVariantPayload designates the authoritative variant for economics.
type MasterVariantPayload struct {
	VariantKey  entity.VariantKey `json:"variantKey" validate:"required"`
	VariantData json.RawMessage   `json:"variantData,omitempty"`
}

// ScenarioPayload changes the production scenario; Source tags the module
// that originated the change and is preserved on the re-broadcast.
type ScenarioPayload struct {
	Scenario entity.Scenario `json:"scenario" validate:"required"`
	Source   string          `json:"source,omitempty"`
}

// EconomicsPayload carries the economics result tagged with the variant it
// was computed for.
type EconomicsPayload struct {
	VariantKey entity.VariantKey `json:"variantKey" validate:"required"`
	Savings    json.RawMessage   `json:"savings" validate:"required"`
}

// NavigatePayload switches the active delivery target.
type NavigatePayload struct {
	Module string `json:"module" validate:"required"`
}

// ProjectCreatedPayload announces a freshly created project.
type ProjectCreatedPayload struct {
	Name   string `json:"name" validate:"required"`
	Client string `json:"client,omitempty"`
}

// ProjectLoadPayload requests a full project load by id.
type ProjectLoadPayload struct {
	ProjectId uuid.UUID `json:"projectId" validate:"required"`
}

// DataAvailablePayload is the outbound confirmation that consumption data is
// present in the external working set and analyzable.
type DataAvailablePayload struct {
	Meta     *entity.ConsumptionMeta `json:"meta,omitempty"`
	Coverage *entity.YearCoverage    `json:"coverage,omitempty"`
	Restored bool                    `json:"restored"`
}
