package state

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"pv-analysis-be/internal/entity"
	"pv-analysis-be/internal/message"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	mu     sync.Mutex
	sent   []message.Envelope
	active string
}

func (f *fakeTarget) SendToActive(env message.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
}

func (f *fakeTarget) SetActive(module string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = module
}

func (f *fakeTarget) sentTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.sent))
	for i, env := range f.sent {
		types[i] = env.Type
	}
	return types
}

func (f *fakeTarget) lastOfType(msgType string) (message.Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Type == msgType {
			return f.sent[i], true
		}
	}
	return message.Envelope{}, false
}

type fakeSticky struct {
	mu       sync.Mutex
	settings json.RawMessage
	scenario entity.Scenario
	project  *entity.ProjectIdentity
}

func (f *fakeSticky) SaveSettings(ctx context.Context, settings json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = settings
	return nil
}

func (f *fakeSticky) LoadSettings(ctx context.Context) (json.RawMessage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, f.settings != nil, nil
}

func (f *fakeSticky) SaveScenario(ctx context.Context, scenario entity.Scenario) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenario = scenario
	return nil
}

func (f *fakeSticky) LoadScenario(ctx context.Context) (entity.Scenario, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scenario, f.scenario != "", nil
}

func (f *fakeSticky) SaveProject(ctx context.Context, identity entity.ProjectIdentity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.project = &identity
	return nil
}

func (f *fakeSticky) LoadProject(ctx context.Context) (*entity.ProjectIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.project, nil
}

func (f *fakeSticky) ClearProject(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.project = nil
	return nil
}

type fakeCoordinator struct {
	mu        sync.Mutex
	active    bool
	persisted map[string]json.RawMessage
	cleared   int
	created   []string
	loaded    []uuid.UUID
	resumed   []entity.ProjectIdentity
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{active: true, persisted: make(map[string]json.RawMessage)}
}

func (f *fakeCoordinator) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeCoordinator) PersistSlice(slice string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, _ := json.Marshal(payload)
	f.persisted[slice] = raw
}

func (f *fakeCoordinator) CreateProject(ctx context.Context, name, client string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
}

func (f *fakeCoordinator) LoadProject(ctx context.Context, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, id)
}

func (f *fakeCoordinator) ClearProject(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeCoordinator) ResumeProject(identity entity.ProjectIdentity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed = append(f.resumed, identity)
}

func (f *fakeCoordinator) slice(name string) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.persisted[name]
	return raw, ok
}

type fakeExporter struct {
	series   []entity.SeriesPoint
	coverage *entity.YearCoverage
	err      error
}

func (f *fakeExporter) Export(ctx context.Context) ([]entity.SeriesPoint, *entity.YearCoverage, error) {
	return f.series, f.coverage, f.err
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func newTestStore(t *testing.T) (*Store, *fakeTarget, *fakeSticky, *fakeCoordinator) {
	t.Helper()
	target := &fakeTarget{}
	sticky := &fakeSticky{}
	coordinator := newFakeCoordinator()
	store := NewStore(target, sticky, &fakeExporter{}, nil, nopLogger{})
	store.AttachCoordinator(coordinator)
	return store, target, sticky, coordinator
}

func envelope(t *testing.T, msgType string, payload interface{}) message.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return message.Envelope{Type: msgType, Data: data}
}

func TestScenarioChangeUpdatesStateAndSticky(t *testing.T) {
	store, target, sticky, coordinator := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, envelope(t, message.TypeScenarioChangedInput, message.ScenarioPayload{
		Scenario: entity.ScenarioP75,
		Source:   "analysis",
	}))

	assert.Equal(t, entity.ScenarioP75, store.Snapshot().CurrentScenario)
	assert.Equal(t, entity.ScenarioP75, sticky.scenario)

	env, ok := target.lastOfType(message.TypeScenarioChanged)
	require.True(t, ok)
	var p message.ScenarioPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, entity.ScenarioP75, p.Scenario)
	assert.Equal(t, "analysis", p.Source)

	_, persisted := coordinator.slice("currentScenario")
	assert.True(t, persisted)
}

func TestInvalidScenarioIgnored(t *testing.T) {
	store, target, sticky, _ := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, envelope(t, message.TypeScenarioChangedInput, map[string]string{
		"scenario": "P99",
	}))

	assert.Equal(t, entity.DefaultScenario, store.Snapshot().CurrentScenario)
	assert.Empty(t, sticky.scenario)
	_, broadcast := target.lastOfType(message.TypeScenarioChanged)
	assert.False(t, broadcast)
}

func TestSettingsAndScenarioSurviveDataClear(t *testing.T) {
	store, target, sticky, coordinator := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, message.Envelope{
		Type: message.TypeSettingsChanged,
		Data: json.RawMessage(`{"currency":"EUR","electricityPrice":0.31}`),
	})
	store.HandleEnvelope(ctx, envelope(t, message.TypeScenarioChangedInput, message.ScenarioPayload{Scenario: entity.ScenarioP90}))
	store.HandleEnvelope(ctx, envelope(t, message.TypeDataUploaded, message.DataUploadedPayload{
		Filename: "load.csv", Rows: 8760, Year: 2024,
	}))

	store.HandleEnvelope(ctx, message.Envelope{Type: message.TypeDataCleared})

	snapshot := store.Snapshot()
	assert.Nil(t, snapshot.ConsumptionData)
	assert.Nil(t, snapshot.AnalysisResults)
	assert.Nil(t, snapshot.CurrentProject)
	assert.JSONEq(t, `{"currency":"EUR","electricityPrice":0.31}`, string(snapshot.Settings))
	assert.Equal(t, entity.ScenarioP90, snapshot.CurrentScenario)

	// Sticky mirrors are untouched by the clear.
	assert.NotNil(t, sticky.settings)
	assert.Equal(t, entity.ScenarioP90, sticky.scenario)

	assert.Equal(t, 1, coordinator.cleared)
	_, confirmed := target.lastOfType(message.TypeDataCleared)
	assert.True(t, confirmed)
}

func TestAnalysisCompleteBroadcastsFullState(t *testing.T) {
	store, target, _, coordinator := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, envelope(t, message.TypeAnalysisComplete, message.AnalysisCompletePayload{
		FullResults: json.RawMessage(`{"variants":{"A":{"kwp":10},"B":{"kwp":20}}}`),
		PVConfig:    json.RawMessage(`{"tilt":30,"azimuth":180}`),
		HourlyData:  []float64{0, 0.5, 1.2},
	}))

	snapshot := store.Snapshot()
	assert.JSONEq(t, `{"variants":{"A":{"kwp":10},"B":{"kwp":20}}}`, string(snapshot.AnalysisResults))
	assert.Len(t, snapshot.HourlyProduction, 3)

	env, ok := target.lastOfType(message.TypeAnalysisResults)
	require.True(t, ok)
	var p AnalysisResultsPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.JSONEq(t, string(snapshot.AnalysisResults), string(p.SharedState.AnalysisResults))

	for _, slice := range []string{"analysisResults", "pvConfiguration", "hourlyProduction"} {
		_, persisted := coordinator.slice(slice)
		assert.True(t, persisted, slice)
	}
}

func TestMasterVariantMustExistInResults(t *testing.T) {
	store, target, _, _ := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, envelope(t, message.TypeAnalysisComplete, message.AnalysisCompletePayload{
		FullResults: json.RawMessage(`{"variants":{"A":{"kwp":10},"B":{"kwp":20}}}`),
		PVConfig:    json.RawMessage(`{}`),
		HourlyData:  []float64{1},
	}))

	// C is in the closed set but absent from the results.
	store.HandleEnvelope(ctx, envelope(t, message.TypeMasterVariantSelected, message.MasterVariantPayload{
		VariantKey: entity.VariantC,
	}))
	assert.Empty(t, store.Snapshot().MasterVariantKey)

	// Outside the closed set entirely.
	store.HandleEnvelope(ctx, envelope(t, message.TypeMasterVariantSelected, map[string]string{
		"variantKey": "E",
	}))
	assert.Empty(t, store.Snapshot().MasterVariantKey)

	store.HandleEnvelope(ctx, envelope(t, message.TypeMasterVariantSelected, message.MasterVariantPayload{
		VariantKey:  entity.VariantB,
		VariantData: json.RawMessage(`{"kwp":20}`),
	}))
	assert.Equal(t, entity.VariantB, store.Snapshot().MasterVariantKey)

	_, ok := target.lastOfType(message.TypeMasterVariantChanged)
	assert.True(t, ok)
}

func TestMasterVariantRejectedWithoutAnalysis(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, envelope(t, message.TypeMasterVariantSelected, message.MasterVariantPayload{
		VariantKey: entity.VariantA,
	}))

	assert.Empty(t, store.Snapshot().MasterVariantKey)
}

func TestRequestSharedDataReturnsIdenticalSnapshots(t *testing.T) {
	store, target, _, _ := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, envelope(t, message.TypeDataUploaded, message.DataUploadedPayload{
		Filename: "load.csv", Rows: 8760, Year: 2024,
	}))

	store.HandleEnvelope(ctx, message.Envelope{Type: message.TypeRequestSharedData})
	first, ok := target.lastOfType(message.TypeSharedDataResponse)
	require.True(t, ok)

	store.HandleEnvelope(ctx, message.Envelope{Type: message.TypeRequestSharedData})
	second, ok := target.lastOfType(message.TypeSharedDataResponse)
	require.True(t, ok)

	assert.JSONEq(t, string(first.Data), string(second.Data))
}

func TestRequestSettingsSilentWhenUnset(t *testing.T) {
	store, target, _, _ := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, message.Envelope{Type: message.TypeRequestSettings})
	_, sent := target.lastOfType(message.TypeSettingsUpdated)
	assert.False(t, sent)

	store.HandleEnvelope(ctx, message.Envelope{
		Type: message.TypeSettingsChanged,
		Data: json.RawMessage(`{"currency":"EUR"}`),
	})
	store.HandleEnvelope(ctx, message.Envelope{Type: message.TypeRequestSettings})
	env, sent := target.lastOfType(message.TypeSettingsUpdated)
	require.True(t, sent)
	assert.JSONEq(t, `{"currency":"EUR"}`, string(env.Data))
}

func TestRequestScenarioAlwaysAnswers(t *testing.T) {
	store, target, _, _ := newTestStore(t)

	store.HandleEnvelope(context.Background(), message.Envelope{Type: message.TypeRequestScenario})

	env, ok := target.lastOfType(message.TypeScenarioChanged)
	require.True(t, ok)
	var p message.ScenarioPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, entity.DefaultScenario, p.Scenario)
}

func TestNavigateSwitchesTarget(t *testing.T) {
	store, target, _, _ := newTestStore(t)

	store.HandleEnvelope(context.Background(), envelope(t, message.TypeNavigate, message.NavigatePayload{
		Module: "economics",
	}))

	assert.Equal(t, "economics", target.active)
}

func TestProjectMessagesDelegateToCoordinator(t *testing.T) {
	store, _, _, coordinator := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, envelope(t, message.TypeProjectCreated, message.ProjectCreatedPayload{
		Name: "Rooftop West", Client: "ACME",
	}))
	assert.Equal(t, []string{"Rooftop West"}, coordinator.created)

	id := uuid.New()
	store.HandleEnvelope(ctx, envelope(t, message.TypeProjectLoadRequest, message.ProjectLoadPayload{
		ProjectId: id,
	}))
	assert.Equal(t, []uuid.UUID{id}, coordinator.loaded)
}

func TestUploadPersistsSeriesOutOfBand(t *testing.T) {
	target := &fakeTarget{}
	sticky := &fakeSticky{}
	coordinator := newFakeCoordinator()
	exporter := &fakeExporter{
		series: []entity.SeriesPoint{
			{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 1.5},
		},
	}
	store := NewStore(target, sticky, exporter, nil, nopLogger{})
	store.AttachCoordinator(coordinator)

	store.HandleEnvelope(context.Background(), envelope(t, message.TypeDataUploaded, message.DataUploadedPayload{
		Filename: "load.csv", Rows: 8760, Year: 2024,
	}))

	env, ok := target.lastOfType(message.TypeDataAvailable)
	require.True(t, ok)
	var p message.DataAvailablePayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.NotNil(t, p.Meta)
	assert.Equal(t, "load.csv", p.Meta.Source)

	require.Eventually(t, func() bool {
		_, ok := coordinator.slice("rawConsumptionSeries")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "series export should reach the coordinator")
}

func TestHydrateRestoresSessionState(t *testing.T) {
	target := &fakeTarget{}
	identity := entity.ProjectIdentity{Id: uuid.New(), Name: "Depot"}
	sticky := &fakeSticky{
		settings: json.RawMessage(`{"currency":"EUR"}`),
		scenario: entity.ScenarioP90,
		project:  &identity,
	}
	coordinator := newFakeCoordinator()
	store := NewStore(target, sticky, &fakeExporter{}, nil, nopLogger{})
	store.AttachCoordinator(coordinator)

	store.Hydrate(context.Background())

	snapshot := store.Snapshot()
	assert.JSONEq(t, `{"currency":"EUR"}`, string(snapshot.Settings))
	assert.Equal(t, entity.ScenarioP90, snapshot.CurrentScenario)
	require.NotNil(t, snapshot.CurrentProject)
	assert.Equal(t, identity.Id, snapshot.CurrentProject.Id)
	require.Len(t, coordinator.resumed, 1)
	assert.Equal(t, identity.Id, coordinator.resumed[0].Id)
}

func TestRunConsumesInbox(t *testing.T) {
	store, target, _, _ := newTestStore(t)

	inbox := make(chan message.Envelope, 2)
	inbox <- envelope(t, message.TypeScenarioChangedInput, message.ScenarioPayload{Scenario: entity.ScenarioP75})
	inbox <- message.Envelope{Type: message.TypeRequestScenario}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, inbox)
		close(done)
	}()

	require.Eventually(t, func() bool {
		env, ok := target.lastOfType(message.TypeScenarioChanged)
		if !ok {
			return false
		}
		var p message.ScenarioPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return false
		}
		return p.Scenario == entity.ScenarioP75
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}

func TestFullSessionFlow(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	store.HandleEnvelope(ctx, envelope(t, message.TypeDataUploaded, message.DataUploadedPayload{
		Filename: "plant_load.csv", Rows: 8760, Year: 2024,
		Coverage: &entity.YearCoverage{Hours: 8760, Complete: true},
	}))
	store.HandleEnvelope(ctx, envelope(t, message.TypeAnalysisComplete, message.AnalysisCompletePayload{
		FullResults: json.RawMessage(`{"variants":{"A":{},"B":{},"C":{},"D":{}}}`),
		PVConfig:    json.RawMessage(`{"tilt":30}`),
		HourlyData:  []float64{1, 2, 3},
	}))
	store.HandleEnvelope(ctx, envelope(t, message.TypeMasterVariantSelected, message.MasterVariantPayload{
		VariantKey:  entity.VariantB,
		VariantData: json.RawMessage(`{"kwp":42}`),
	}))
	store.HandleEnvelope(ctx, envelope(t, message.TypeScenarioChangedInput, message.ScenarioPayload{
		Scenario: entity.ScenarioP75,
	}))
	store.HandleEnvelope(ctx, envelope(t, message.TypeEconomicsCalculated, message.EconomicsPayload{
		VariantKey: entity.VariantB,
		Savings:    json.RawMessage(`{"annual":1200}`),
	}))

	snapshot := store.Snapshot()
	require.NotNil(t, snapshot.ConsumptionData)
	assert.Equal(t, "plant_load.csv", snapshot.ConsumptionData.Source)
	assert.Equal(t, entity.VariantB, snapshot.MasterVariantKey)
	assert.Equal(t, entity.ScenarioP75, snapshot.CurrentScenario)
	assert.NotNil(t, snapshot.AnalyticalYearCoverage)
	assert.True(t, snapshot.AnalyticalYearCoverage.Complete)

	var economics message.EconomicsPayload
	require.NoError(t, json.Unmarshal(snapshot.Economics, &economics))
	assert.Equal(t, entity.VariantB, economics.VariantKey)
}
