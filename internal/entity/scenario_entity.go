package entity

// Scenario is a production-estimate confidence level. Each level maps to a
// fixed derate factor applied to the P50 production estimate.
type Scenario string

const (
	ScenarioP50 Scenario = "P50"
	ScenarioP75 Scenario = "P75"
	ScenarioP90 Scenario = "P90"

	// DefaultScenario applies until a module or a loaded project says otherwise.
	DefaultScenario = ScenarioP50
)

var scenarioDerates = map[Scenario]float64{
	ScenarioP50: 1.00,
	ScenarioP75: 0.93,
	ScenarioP90: 0.87,
}

// IsValid reports whether s is one of the three enumerated scenarios.
func (s Scenario) IsValid() bool {
	_, ok := scenarioDerates[s]
	return ok
}

// DerateFactor returns the production derate for the scenario, 1.0 for
// unknown values.
func (s Scenario) DerateFactor() float64 {
	if f, ok := scenarioDerates[s]; ok {
		return f
	}
	return 1.0
}

// VariantKey designates one analysis variant. The set is closed: sizing
// variants are always reported as A through D.
type VariantKey string

const (
	VariantA VariantKey = "A"
	VariantB VariantKey = "B"
	VariantC VariantKey = "C"
	VariantD VariantKey = "D"
)

// IsValid reports whether k belongs to the closed variant set.
func (k VariantKey) IsValid() bool {
	switch k {
	case VariantA, VariantB, VariantC, VariantD:
		return true
	}
	return false
}
