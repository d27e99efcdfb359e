package state

import (
	"context"
	"encoding/json"
	"time"

	"pv-analysis-be/internal/entity"
	"pv-analysis-be/internal/message"
	"pv-analysis-be/internal/pkg/logger"
	"pv-analysis-be/internal/repository/contract"

	"github.com/google/uuid"
)

// Target is the outbound side of the message transport: delivery to the one
// currently mounted module, plus target switching for NAVIGATE.
type Target interface {
	SendToActive(env message.Envelope)
	SetActive(module string)
}

// DataExporter pulls the full-resolution series out of the external
// data-analysis service, used to mirror an upload into the project record
// without holding a second in-memory copy.
type DataExporter interface {
	Export(ctx context.Context) ([]entity.SeriesPoint, *entity.YearCoverage, error)
}

// ProjectCoordinator is the persistence side of the coordinator, implemented
// by the orchestrator. All methods are called from the store's run loop.
type ProjectCoordinator interface {
	// Active reports whether a project is active (persist writes occur).
	Active() bool
	// PersistSlice mirrors one named state slice to the remote record,
	// fire-and-forget. A no-op when no project is active.
	PersistSlice(slice string, payload interface{})
	// CreateProject creates a remote record and activates it.
	CreateProject(ctx context.Context, name, client string)
	// LoadProject reconstructs state from a remote record.
	LoadProject(ctx context.Context, id uuid.UUID)
	// ClearProject deactivates persistence and clears the external working set.
	ClearProject(ctx context.Context)
	// ResumeProject re-enters ProjectActive for an identity restored from
	// durable session storage, without any load broadcasts.
	ResumeProject(identity entity.ProjectIdentity)
}

// LifecycleEmitter publishes coordinator lifecycle events to the bus for
// downstream consumers. Emission is best-effort.
type LifecycleEmitter interface {
	Emit(ctx context.Context, eventType string, data map[string]interface{})
}

// Store owns SharedState. It is a single-writer actor: Run consumes the
// transport inbox on one goroutine, and every mutation happens there. The
// invariant "only the coordinator mutates state" is enforced by this package
// exposing no setters beyond the ones the orchestrator needs during a load
// (which itself runs inside the run loop).
type Store struct {
	shared   SharedState
	target   Target
	sticky   contract.StickyRepository
	exporter DataExporter
	projects ProjectCoordinator
	emitter  LifecycleEmitter
	logger   logger.ILogger
}

func NewStore(target Target, sticky contract.StickyRepository, exporter DataExporter, emitter LifecycleEmitter, log logger.ILogger) *Store {
	return &Store{
		shared:   SharedState{CurrentScenario: entity.DefaultScenario},
		target:   target,
		sticky:   sticky,
		exporter: exporter,
		emitter:  emitter,
		logger:   log,
	}
}

// AttachCoordinator wires the orchestrator in after construction; the two
// reference each other so one side is attached late.
func (s *Store) AttachCoordinator(pc ProjectCoordinator) {
	s.projects = pc
}

// Hydrate restores the session-scoped fields from durable storage. Called
// once at startup, before Run.
func (s *Store) Hydrate(ctx context.Context) {
	if settings, found, err := s.sticky.LoadSettings(ctx); err != nil {
		s.logger.Warn("Store", "Failed to hydrate settings", map[string]interface{}{"error": err.Error()})
	} else if found {
		s.shared.Settings = settings
	}

	if scenario, found, err := s.sticky.LoadScenario(ctx); err != nil {
		s.logger.Warn("Store", "Failed to hydrate scenario", map[string]interface{}{"error": err.Error()})
	} else if found && scenario.IsValid() {
		s.shared.CurrentScenario = scenario
	}

	identity, err := s.sticky.LoadProject(ctx)
	if err != nil {
		s.logger.Warn("Store", "Failed to hydrate project identity", map[string]interface{}{"error": err.Error()})
		return
	}
	if identity != nil {
		s.shared.CurrentProject = identity
		if s.projects != nil {
			s.projects.ResumeProject(*identity)
		}
	}
}

// Run is the actor loop. It returns when ctx is cancelled or the inbox
// closes.
func (s *Store) Run(ctx context.Context, inbox <-chan message.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-inbox:
			if !ok {
				return
			}
			s.HandleEnvelope(ctx, env)
		}
	}
}

// Snapshot returns a deep copy of the current state. Safe only from the run
// loop goroutine (or tests driving HandleEnvelope directly).
func (s *Store) Snapshot() SharedState {
	return s.shared.copy()
}

// SetProject replaces the project identity. Called by the orchestrator
// during create/load, inside the run loop.
func (s *Store) SetProject(identity *entity.ProjectIdentity) {
	s.shared.CurrentProject = identity
}

// ApplyLoadedSlices replaces the project-scoped fields atomically from a
// loaded record. Absent slices in the record clear the corresponding fields;
// settings and scenario are only overwritten when the record carries them.
func (s *Store) ApplyLoadedSlices(ctx context.Context, slices LoadedSlices) {
	s.shared.ConsumptionData = slices.ConsumptionData
	s.shared.RawConsumptionSeries = nil
	s.shared.AnalysisResults = slices.AnalysisResults
	s.shared.PVConfiguration = slices.PVConfiguration
	s.shared.HourlyProduction = slices.HourlyProduction
	s.shared.MasterVariant = slices.MasterVariant
	s.shared.MasterVariantKey = slices.MasterVariantKey
	s.shared.Economics = slices.Economics
	s.shared.AnalyticalYearCoverage = slices.YearCoverage

	if len(slices.Settings) > 0 {
		s.shared.Settings = slices.Settings
		if err := s.sticky.SaveSettings(ctx, slices.Settings); err != nil {
			s.logger.Warn("Store", "Failed to mirror loaded settings", map[string]interface{}{"error": err.Error()})
		}
	}
	if slices.Scenario.IsValid() {
		s.shared.CurrentScenario = slices.Scenario
		if err := s.sticky.SaveScenario(ctx, slices.Scenario); err != nil {
			s.logger.Warn("Store", "Failed to mirror loaded scenario", map[string]interface{}{"error": err.Error()})
		}
	}
}

// HandleEnvelope applies one inbound message: mutate, then fire-and-forget
// persistence, then a synchronous re-broadcast to the active module. The
// re-broadcast never waits on persistence.
func (s *Store) HandleEnvelope(ctx context.Context, env message.Envelope) {
	switch env.Type {
	case message.TypeDataUploaded:
		s.onDataUploaded(ctx, env)
	case message.TypeAnalysisComplete:
		s.onAnalysisComplete(ctx, env)
	case message.TypeMasterVariantSelected:
		s.onMasterVariantSelected(ctx, env)
	case message.TypeScenarioChangedInput:
		s.onScenarioChanged(ctx, env)
	case message.TypeSettingsChanged:
		s.onSettingsChanged(ctx, env)
	case message.TypeEconomicsCalculated:
		s.onEconomicsCalculated(ctx, env)
	case message.TypeDataCleared:
		s.onDataCleared(ctx)
	case message.TypeRequestSharedData:
		s.onRequestSharedData()
	case message.TypeRequestSettings:
		s.onRequestSettings()
	case message.TypeRequestScenario:
		s.onRequestScenario()
	case message.TypeNavigate:
		s.onNavigate(env)
	case message.TypeProjectCreated:
		s.onProjectCreated(ctx, env)
	case message.TypeProjectLoadRequest:
		s.onProjectLoadRequest(ctx, env)
	case message.TypeRequestProject:
		s.onRequestProject()
	default:
		s.logger.Debug("Store", "Ignoring unknown message type", map[string]interface{}{"type": env.Type})
	}
}

func (s *Store) onDataUploaded(ctx context.Context, env message.Envelope) {
	var p message.DataUploadedPayload
	if err := message.Decode(env, &p); err != nil {
		s.logger.Warn("Store", "Ignoring malformed DATA_UPLOADED", map[string]interface{}{"error": err.Error()})
		return
	}

	s.shared.ConsumptionData = &entity.ConsumptionMeta{
		Source:  p.Filename,
		Samples: p.Rows,
		Year:    p.Year,
	}
	if p.Coverage != nil {
		s.shared.AnalyticalYearCoverage = p.Coverage
	}

	if s.projects != nil {
		s.projects.PersistSlice(contract.SliceConsumptionData, s.shared.ConsumptionData)
		if s.shared.AnalyticalYearCoverage != nil {
			s.projects.PersistSlice(contract.SliceYearCoverage, s.shared.AnalyticalYearCoverage)
		}
		// Mirror the full series into the record out of band. The series is
		// fetched from the data-analysis service rather than held here.
		go s.exportSeriesForPersistence()
	}

	s.emit(ctx, "DATA_UPLOADED", map[string]interface{}{
		"source":  p.Filename,
		"samples": p.Rows,
		"year":    p.Year,
	})

	s.target.SendToActive(message.New(message.TypeDataAvailable, message.DataAvailablePayload{
		Meta:     s.shared.ConsumptionData,
		Coverage: s.shared.AnalyticalYearCoverage,
	}))
}

// exportSeriesForPersistence runs off the run loop; it only persists, never
// mutates SharedState.
func (s *Store) exportSeriesForPersistence() {
	if s.exporter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	series, coverage, err := s.exporter.Export(ctx)
	if err != nil {
		s.logger.Error("Store", "Bulk series export failed, record series left stale", map[string]interface{}{"error": err.Error()})
		return
	}
	s.projects.PersistSlice(contract.SliceRawConsumptionSeries, series)
	if coverage != nil {
		s.projects.PersistSlice(contract.SliceYearCoverage, coverage)
	}
}

func (s *Store) onAnalysisComplete(ctx context.Context, env message.Envelope) {
	var p message.AnalysisCompletePayload
	if err := message.Decode(env, &p); err != nil {
		s.logger.Warn("Store", "Ignoring malformed ANALYSIS_COMPLETE", map[string]interface{}{"error": err.Error()})
		return
	}

	s.shared.AnalysisResults = p.FullResults
	s.shared.PVConfiguration = p.PVConfig
	s.shared.HourlyProduction = p.HourlyData

	if s.projects != nil {
		s.projects.PersistSlice(contract.SliceAnalysisResults, json.RawMessage(p.FullResults))
		s.projects.PersistSlice(contract.SlicePVConfiguration, json.RawMessage(p.PVConfig))
		s.projects.PersistSlice(contract.SliceHourlyProduction, p.HourlyData)
	}

	s.target.SendToActive(message.New(message.TypeAnalysisResults, AnalysisResultsPayload{
		FullResults: p.FullResults,
		PVConfig:    p.PVConfig,
		HourlyData:  p.HourlyData,
		SharedState: s.shared.copy(),
	}))
}

// AnalysisResultsPayload embeds the full state so the receiving module does
// not need a second round trip.
type AnalysisResultsPayload struct {
	FullResults json.RawMessage `json:"fullResults"`
	PVConfig    json.RawMessage `json:"pvConfig"`
	HourlyData  []float64       `json:"hourlyData"`
	SharedState SharedState     `json:"sharedState"`
}

func (s *Store) onMasterVariantSelected(ctx context.Context, env message.Envelope) {
	var p message.MasterVariantPayload
	if err := message.Decode(env, &p); err != nil {
		s.logger.Warn("Store", "Ignoring malformed MASTER_VARIANT_SELECTED", map[string]interface{}{"error": err.Error()})
		return
	}
	if !p.VariantKey.IsValid() {
		s.logger.Warn("Store", "Ignoring master variant outside closed set", map[string]interface{}{"variantKey": string(p.VariantKey)})
		return
	}
	if !s.variantExists(p.VariantKey) {
		s.logger.Warn("Store", "Ignoring master variant not present in analysis results", map[string]interface{}{"variantKey": string(p.VariantKey)})
		return
	}

	s.shared.MasterVariantKey = p.VariantKey
	s.shared.MasterVariant = p.VariantData

	if s.projects != nil {
		s.projects.PersistSlice(contract.SliceMasterVariantKey, p.VariantKey)
		s.projects.PersistSlice(contract.SliceMasterVariant, json.RawMessage(p.VariantData))
	}

	s.target.SendToActive(message.New(message.TypeMasterVariantChanged, p))
}

// variantExists checks the invariant that a master variant key references a
// variant actually present in the analysis results.
func (s *Store) variantExists(key entity.VariantKey) bool {
	if len(s.shared.AnalysisResults) == 0 {
		return false
	}
	var parsed struct {
		Variants map[string]json.RawMessage `json:"variants"`
	}
	if err := json.Unmarshal(s.shared.AnalysisResults, &parsed); err != nil {
		return false
	}
	_, ok := parsed.Variants[string(key)]
	return ok
}

func (s *Store) onScenarioChanged(ctx context.Context, env message.Envelope) {
	var p message.ScenarioPayload
	if err := message.Decode(env, &p); err != nil {
		s.logger.Warn("Store", "Ignoring malformed PRODUCTION_SCENARIO_CHANGED", map[string]interface{}{"error": err.Error()})
		return
	}
	if !p.Scenario.IsValid() {
		s.logger.Warn("Store", "Ignoring invalid scenario", map[string]interface{}{"scenario": string(p.Scenario)})
		return
	}

	s.shared.CurrentScenario = p.Scenario
	if err := s.sticky.SaveScenario(ctx, p.Scenario); err != nil {
		s.logger.Warn("Store", "Failed to persist sticky scenario", map[string]interface{}{"error": err.Error()})
	}
	if s.projects != nil {
		s.projects.PersistSlice(contract.SliceCurrentScenario, p.Scenario)
	}

	// Source tag preserved so the originating module can ignore its own echo.
	s.target.SendToActive(message.New(message.TypeScenarioChanged, p))
}

func (s *Store) onSettingsChanged(ctx context.Context, env message.Envelope) {
	if len(env.Data) == 0 {
		s.logger.Warn("Store", "Ignoring empty SETTINGS_CHANGED", nil)
		return
	}

	s.shared.Settings = cloneRaw(env.Data)
	if err := s.sticky.SaveSettings(ctx, s.shared.Settings); err != nil {
		s.logger.Warn("Store", "Failed to persist sticky settings", map[string]interface{}{"error": err.Error()})
	}
	if s.projects != nil {
		s.projects.PersistSlice(contract.SliceSettings, s.shared.Settings)
	}

	s.target.SendToActive(message.Envelope{Type: message.TypeSettingsUpdated, Data: cloneRaw(s.shared.Settings)})
}

func (s *Store) onEconomicsCalculated(ctx context.Context, env message.Envelope) {
	var p message.EconomicsPayload
	if err := message.Decode(env, &p); err != nil {
		s.logger.Warn("Store", "Ignoring malformed ECONOMICS_CALCULATED", map[string]interface{}{"error": err.Error()})
		return
	}

	// The whole payload is stored: economics stays tagged with the variant
	// key it was computed for.
	s.shared.Economics = cloneRaw(env.Data)

	if s.projects != nil {
		s.projects.PersistSlice(contract.SliceEconomics, s.shared.Economics)
	}

	s.target.SendToActive(message.Envelope{Type: message.TypeEconomicsUpdated, Data: cloneRaw(s.shared.Economics)})
}

func (s *Store) onDataCleared(ctx context.Context) {
	s.shared.resetData()

	if s.projects != nil {
		s.projects.ClearProject(ctx)
	}

	s.emit(ctx, "DATA_CLEARED", nil)

	s.target.SendToActive(message.Envelope{Type: message.TypeDataCleared})
}

func (s *Store) onRequestSharedData() {
	s.target.SendToActive(message.New(message.TypeSharedDataResponse, s.shared.copy()))
}

func (s *Store) onRequestSettings() {
	if len(s.shared.Settings) == 0 {
		return
	}
	s.target.SendToActive(message.Envelope{Type: message.TypeSettingsUpdated, Data: cloneRaw(s.shared.Settings)})
}

func (s *Store) onRequestScenario() {
	s.target.SendToActive(message.New(message.TypeScenarioChanged, message.ScenarioPayload{
		Scenario: s.shared.CurrentScenario,
	}))
}

func (s *Store) onNavigate(env message.Envelope) {
	var p message.NavigatePayload
	if err := message.Decode(env, &p); err != nil {
		s.logger.Warn("Store", "Ignoring malformed NAVIGATE", map[string]interface{}{"error": err.Error()})
		return
	}
	s.target.SetActive(p.Module)
}

func (s *Store) onProjectCreated(ctx context.Context, env message.Envelope) {
	var p message.ProjectCreatedPayload
	if err := message.Decode(env, &p); err != nil {
		s.logger.Warn("Store", "Ignoring malformed PROJECT_CREATED", map[string]interface{}{"error": err.Error()})
		return
	}
	if s.projects == nil {
		return
	}
	s.projects.CreateProject(ctx, p.Name, p.Client)
}

func (s *Store) onProjectLoadRequest(ctx context.Context, env message.Envelope) {
	var p message.ProjectLoadPayload
	if err := message.Decode(env, &p); err != nil {
		s.logger.Warn("Store", "Ignoring malformed PROJECT_LOAD_REQUEST", map[string]interface{}{"error": err.Error()})
		return
	}
	if s.projects == nil {
		return
	}
	s.projects.LoadProject(ctx, p.ProjectId)
}

func (s *Store) onRequestProject() {
	if s.shared.CurrentProject == nil {
		return
	}
	s.target.SendToActive(message.New(message.TypeProjectChanged, s.shared.CurrentProject))
}

func (s *Store) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, eventType, data)
}
