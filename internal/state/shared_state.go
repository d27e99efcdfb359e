package state

import (
	"encoding/json"

	"pv-analysis-be/internal/entity"
)

// SharedState is the canonical application state owned by the coordinator.
// It is mutated exclusively by the Store's run loop; modules only ever see
// copies, via broadcast or explicit request.
//
// Opaque fields (analysis results, pv configuration, economics, settings)
// are structured by the modules that produce them; the shell stores and
// relays them without interpretation.
type SharedState struct {
	ConsumptionData        *entity.ConsumptionMeta `json:"consumptionData,omitempty"`
	RawConsumptionSeries   []entity.SeriesPoint    `json:"rawConsumptionSeries,omitempty"`
	AnalysisResults        json.RawMessage         `json:"analysisResults,omitempty"`
	PVConfiguration        json.RawMessage         `json:"pvConfiguration,omitempty"`
	HourlyProduction       []float64               `json:"hourlyProduction,omitempty"`
	MasterVariant          json.RawMessage         `json:"masterVariant,omitempty"`
	MasterVariantKey       entity.VariantKey       `json:"masterVariantKey,omitempty"`
	Economics              json.RawMessage         `json:"economics,omitempty"`
	Settings               json.RawMessage         `json:"settings,omitempty"`
	CurrentScenario        entity.Scenario         `json:"currentScenario"`
	CurrentProject         *entity.ProjectIdentity `json:"currentProject,omitempty"`
	AnalyticalYearCoverage *entity.YearCoverage    `json:"analyticalYearCoverage,omitempty"`
}

// copy returns a deep copy safe to hand outside the run loop.
func (s *SharedState) copy() SharedState {
	out := SharedState{
		AnalysisResults:  cloneRaw(s.AnalysisResults),
		PVConfiguration:  cloneRaw(s.PVConfiguration),
		MasterVariant:    cloneRaw(s.MasterVariant),
		MasterVariantKey: s.MasterVariantKey,
		Economics:        cloneRaw(s.Economics),
		Settings:         cloneRaw(s.Settings),
		CurrentScenario:  s.CurrentScenario,
	}
	if s.ConsumptionData != nil {
		meta := *s.ConsumptionData
		out.ConsumptionData = &meta
	}
	if len(s.RawConsumptionSeries) > 0 {
		out.RawConsumptionSeries = append([]entity.SeriesPoint(nil), s.RawConsumptionSeries...)
	}
	if len(s.HourlyProduction) > 0 {
		out.HourlyProduction = append([]float64(nil), s.HourlyProduction...)
	}
	if s.CurrentProject != nil {
		identity := *s.CurrentProject
		out.CurrentProject = &identity
	}
	if s.AnalyticalYearCoverage != nil {
		coverage := *s.AnalyticalYearCoverage
		out.AnalyticalYearCoverage = &coverage
	}
	return out
}

// resetData clears everything except the session-scoped fields: settings and
// the current scenario survive a data clear.
func (s *SharedState) resetData() {
	s.ConsumptionData = nil
	s.RawConsumptionSeries = nil
	s.AnalysisResults = nil
	s.PVConfiguration = nil
	s.HourlyProduction = nil
	s.MasterVariant = nil
	s.MasterVariantKey = ""
	s.Economics = nil
	s.CurrentProject = nil
	s.AnalyticalYearCoverage = nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// LoadedSlices carries the slices copied out of a project record during a
// load. The bulk raw series is intentionally absent: it goes to the external
// data-analysis service, never into memory.
type LoadedSlices struct {
	ConsumptionData  *entity.ConsumptionMeta
	AnalysisResults  json.RawMessage
	PVConfiguration  json.RawMessage
	HourlyProduction []float64
	MasterVariant    json.RawMessage
	MasterVariantKey entity.VariantKey
	Economics        json.RawMessage
	Settings         json.RawMessage
	Scenario         entity.Scenario
	YearCoverage     *entity.YearCoverage
}
