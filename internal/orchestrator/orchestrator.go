// Package orchestrator manages the lifetime of a remote project record and
// mirrors state mutations into it. It moves between three phases: NoProject
// (nothing persists), Loading (a record is being reconstructed) and
// ProjectActive (every mutation is mirrored slice by slice).
package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmmessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"pv-analysis-be/internal/entity"
	"pv-analysis-be/internal/message"
	"pv-analysis-be/internal/model"
	"pv-analysis-be/internal/pkg/logger"
	"pv-analysis-be/internal/repository/contract"
	"pv-analysis-be/internal/repository/unitofwork"
	"pv-analysis-be/internal/state"

	"gorm.io/datatypes"
)

// PersistTopic is the in-process queue topic carrying slice writes from the
// orchestrator to the persister.
const PersistTopic = "project.slice.persist"

type phase int

const (
	phaseNoProject phase = iota
	phaseLoading
	phaseProjectActive
)

// WorkingSetClient manipulates the external data-analysis service's working
// set, satisfied by pkg/dataclient.
type WorkingSetClient interface {
	Export(ctx context.Context) ([]entity.SeriesPoint, *entity.YearCoverage, error)
	Restore(ctx context.Context, series []entity.SeriesPoint) error
	Clear(ctx context.Context) error
}

// Orchestrator implements state.ProjectCoordinator. Create, load, clear and
// resume run on the store's actor goroutine; persistence itself is handed to
// the persister worker through the in-process queue so state handling never
// waits on the database.
type Orchestrator struct {
	store      *state.Store
	target     state.Target
	sticky     contract.StickyRepository
	workingSet WorkingSetClient
	uowFactory unitofwork.RepositoryFactory
	pubSub     *gochannel.GoChannel
	topic      string
	emitter    state.LifecycleEmitter
	logger     logger.ILogger

	mu        sync.RWMutex
	phase     phase
	projectId uuid.UUID

	// workingSetMu serializes restore and clear against the external
	// service so a clear racing a load cannot interleave with its restore.
	workingSetMu sync.Mutex
}

func NewOrchestrator(
	store *state.Store,
	target state.Target,
	sticky contract.StickyRepository,
	workingSet WorkingSetClient,
	uowFactory unitofwork.RepositoryFactory,
	pubSub *gochannel.GoChannel,
	topic string,
	emitter state.LifecycleEmitter,
	log logger.ILogger,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		target:     target,
		sticky:     sticky,
		workingSet: workingSet,
		uowFactory: uowFactory,
		pubSub:     pubSub,
		topic:      topic,
		emitter:    emitter,
		logger:     log,
		phase:      phaseNoProject,
	}
}

// Active reports whether mutations are currently mirrored to a record.
func (o *Orchestrator) Active() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.phase == phaseProjectActive
}

// persistJob is the queue payload: one slice overwrite against one record.
type persistJob struct {
	ProjectId uuid.UUID       `json:"projectId"`
	Slice     string          `json:"slice"`
	Payload   json.RawMessage `json:"payload"`
}

// PersistSlice queues one slice write, fire-and-forget. Outside
// ProjectActive this is a no-op; a write failure downstream is logged and
// the column stays stale until the next mutation of the same slice.
func (o *Orchestrator) PersistSlice(slice string, payload interface{}) {
	o.mu.RLock()
	active := o.phase == phaseProjectActive
	id := o.projectId
	o.mu.RUnlock()
	if !active {
		return
	}
	if !contract.KnownSlice(slice) {
		o.logger.Error("Orchestrator", "Refusing to persist unknown slice", map[string]interface{}{"slice": slice})
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		o.logger.Error("Orchestrator", "Failed to marshal slice payload", map[string]interface{}{"slice": slice, "error": err.Error()})
		return
	}
	job, err := json.Marshal(persistJob{ProjectId: id, Slice: slice, Payload: raw})
	if err != nil {
		o.logger.Error("Orchestrator", "Failed to marshal persist job", map[string]interface{}{"slice": slice, "error": err.Error()})
		return
	}

	if err := o.pubSub.Publish(o.topic, wmmessage.NewMessage(watermill.NewUUID(), job)); err != nil {
		o.logger.Error("Orchestrator", "Failed to queue persist job", map[string]interface{}{"slice": slice, "error": err.Error()})
	}
}

// CreateProject snapshots the current state into a new record and enters
// ProjectActive. The raw series is mirrored from the external working set
// out of band.
func (o *Orchestrator) CreateProject(ctx context.Context, name, client string) {
	snapshot := o.store.Snapshot()

	record := &model.ProjectRecord{
		Name:   name,
		Client: client,
	}
	fillRecordFromSnapshot(record, snapshot)

	uow := o.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ProjectRepository().Create(ctx, record); err != nil {
		o.logger.Error("Orchestrator", "Failed to create project record", map[string]interface{}{"name": name, "error": err.Error()})
		return
	}

	identity := entity.ProjectIdentity{Id: record.Id, Name: name, Client: client}

	o.mu.Lock()
	o.phase = phaseProjectActive
	o.projectId = record.Id
	o.mu.Unlock()

	o.store.SetProject(&identity)
	if err := o.sticky.SaveProject(ctx, identity); err != nil {
		o.logger.Warn("Orchestrator", "Failed to persist sticky project identity", map[string]interface{}{"error": err.Error()})
	}

	// The record starts with whatever series the working set holds now.
	if snapshot.ConsumptionData != nil {
		go o.mirrorWorkingSet()
	}

	if o.emitter != nil {
		o.emitter.Emit(ctx, "PROJECT_CREATED", map[string]interface{}{
			"projectId": record.Id.String(), "name": name,
		})
	}

	o.target.SendToActive(message.New(message.TypeProjectChanged, identity))
}

// mirrorWorkingSet copies the external working set into the record's raw
// series column. Runs off the actor goroutine and only persists.
func (o *Orchestrator) mirrorWorkingSet() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	o.workingSetMu.Lock()
	series, coverage, err := o.workingSet.Export(ctx)
	o.workingSetMu.Unlock()
	if err != nil {
		o.logger.Error("Orchestrator", "Failed to export working set for new project", map[string]interface{}{"error": err.Error()})
		return
	}
	o.PersistSlice(contract.SliceRawConsumptionSeries, series)
	if coverage != nil {
		o.PersistSlice(contract.SliceYearCoverage, coverage)
	}
}

// LoadProject reconstructs the full state from a record: in-memory slices,
// the external working set, then the fixed broadcast sequence that walks the
// active module back into a consistent view. A restore failure is logged but
// the load still completes; the module sees stale analysis availability at
// worst and the next upload heals it.
func (o *Orchestrator) LoadProject(ctx context.Context, id uuid.UUID) {
	o.mu.Lock()
	prevPhase, prevId := o.phase, o.projectId
	o.phase = phaseLoading
	o.projectId = id
	o.mu.Unlock()

	uow := o.uowFactory.NewUnitOfWork(ctx)
	record, err := uow.ProjectRepository().FindById(ctx, id)
	if err != nil || record == nil {
		if err != nil {
			o.logger.Error("Orchestrator", "Failed to load project record", map[string]interface{}{"projectId": id.String(), "error": err.Error()})
		} else {
			o.logger.Warn("Orchestrator", "Project record not found", map[string]interface{}{"projectId": id.String()})
		}
		o.mu.Lock()
		o.phase, o.projectId = prevPhase, prevId
		o.mu.Unlock()
		return
	}

	identity := entity.ProjectIdentity{Id: record.Id, Name: record.Name, Client: record.Client}
	slices, rawSeries := slicesFromRecord(record, o.logger)

	o.store.SetProject(&identity)
	o.store.ApplyLoadedSlices(ctx, slices)

	restored := o.restoreWorkingSet(ctx, rawSeries)

	if err := o.sticky.SaveProject(ctx, identity); err != nil {
		o.logger.Warn("Orchestrator", "Failed to persist sticky project identity", map[string]interface{}{"error": err.Error()})
	}

	o.mu.Lock()
	o.phase = phaseProjectActive
	o.mu.Unlock()

	o.broadcastLoadSequence(identity, restored)

	if o.emitter != nil {
		o.emitter.Emit(ctx, "PROJECT_LOADED", map[string]interface{}{
			"projectId": record.Id.String(), "name": record.Name,
		})
	}
}

// restoreWorkingSet pushes the record's series into the external service, or
// clears it when the record has none. Returns whether data is available.
func (o *Orchestrator) restoreWorkingSet(ctx context.Context, series []entity.SeriesPoint) bool {
	o.workingSetMu.Lock()
	defer o.workingSetMu.Unlock()

	if len(series) == 0 {
		if err := o.workingSet.Clear(ctx); err != nil {
			o.logger.Warn("Orchestrator", "Failed to clear working set for seriesless project", map[string]interface{}{"error": err.Error()})
		}
		return false
	}
	if err := o.workingSet.Restore(ctx, series); err != nil {
		o.logger.Error("Orchestrator", "Working set restore failed, analysis requests will run against stale data", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

// broadcastLoadSequence replays the state to the active module in a fixed
// order so it can rebuild its view incrementally: data availability first,
// then identity, the full state, analysis results when present, and finally
// the session-scoped settings and scenario. DATA_AVAILABLE always opens the
// sequence, even for a record with no data; an empty payload with
// restored=false tells the module the working set holds nothing.
func (o *Orchestrator) broadcastLoadSequence(identity entity.ProjectIdentity, restored bool) {
	snapshot := o.store.Snapshot()

	o.target.SendToActive(message.New(message.TypeDataAvailable, message.DataAvailablePayload{
		Meta:     snapshot.ConsumptionData,
		Coverage: snapshot.AnalyticalYearCoverage,
		Restored: restored,
	}))

	o.target.SendToActive(message.New(message.TypeProjectLoaded, identity))
	o.target.SendToActive(message.New(message.TypeSharedDataResponse, snapshot))

	if len(snapshot.AnalysisResults) > 0 {
		o.target.SendToActive(message.New(message.TypeAnalysisResults, state.AnalysisResultsPayload{
			FullResults: snapshot.AnalysisResults,
			PVConfig:    snapshot.PVConfiguration,
			HourlyData:  snapshot.HourlyProduction,
			SharedState: snapshot,
		}))
	}

	if len(snapshot.Settings) > 0 {
		o.target.SendToActive(message.Envelope{Type: message.TypeSettingsUpdated, Data: snapshot.Settings})
	}

	o.target.SendToActive(message.New(message.TypeScenarioChanged, message.ScenarioPayload{
		Scenario: snapshot.CurrentScenario,
	}))
}

// ClearProject leaves ProjectActive and drops the external working set. The
// record itself is untouched; clearing data never deletes a project.
func (o *Orchestrator) ClearProject(ctx context.Context) {
	o.mu.Lock()
	o.phase = phaseNoProject
	o.projectId = uuid.Nil
	o.mu.Unlock()

	if err := o.sticky.ClearProject(ctx); err != nil {
		o.logger.Warn("Orchestrator", "Failed to clear sticky project identity", map[string]interface{}{"error": err.Error()})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		o.workingSetMu.Lock()
		defer o.workingSetMu.Unlock()
		if err := o.workingSet.Clear(ctx); err != nil {
			o.logger.Warn("Orchestrator", "Failed to clear working set", map[string]interface{}{"error": err.Error()})
		}
	}()
}

// ResumeProject re-enters ProjectActive for an identity recovered from
// durable session storage at startup. No loading, no broadcasts: the state
// slices live in the record and modules self-heal via REQUEST_SHARED_DATA.
func (o *Orchestrator) ResumeProject(identity entity.ProjectIdentity) {
	o.mu.Lock()
	o.phase = phaseProjectActive
	o.projectId = identity.Id
	o.mu.Unlock()
	o.logger.Info("Orchestrator", "Resumed project from session storage", map[string]interface{}{
		"projectId": identity.Id.String(), "name": identity.Name,
	})
}

// fillRecordFromSnapshot marshals the present state slices into the record's
// JSON columns. Absent slices stay NULL.
func fillRecordFromSnapshot(record *model.ProjectRecord, snapshot state.SharedState) {
	record.ConsumptionData = marshalColumn(snapshot.ConsumptionData)
	record.AnalysisResults = datatypes.JSON(snapshot.AnalysisResults)
	record.PVConfiguration = datatypes.JSON(snapshot.PVConfiguration)
	if len(snapshot.HourlyProduction) > 0 {
		record.HourlyProduction = marshalColumn(snapshot.HourlyProduction)
	}
	record.MasterVariant = datatypes.JSON(snapshot.MasterVariant)
	if snapshot.MasterVariantKey != "" {
		record.MasterVariantKey = marshalColumn(snapshot.MasterVariantKey)
	}
	record.Economics = datatypes.JSON(snapshot.Economics)
	record.Settings = datatypes.JSON(snapshot.Settings)
	record.CurrentScenario = marshalColumn(snapshot.CurrentScenario)
	if snapshot.AnalyticalYearCoverage != nil {
		record.YearCoverage = marshalColumn(snapshot.AnalyticalYearCoverage)
	}
}

func marshalColumn(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// slicesFromRecord decodes the record's JSON columns back into typed state
// slices. Individual decode failures are logged and skipped; one corrupt
// column must not sink the whole load.
func slicesFromRecord(record *model.ProjectRecord, log logger.ILogger) (state.LoadedSlices, []entity.SeriesPoint) {
	var slices state.LoadedSlices

	if len(record.ConsumptionData) > 0 {
		var meta entity.ConsumptionMeta
		if err := json.Unmarshal(record.ConsumptionData, &meta); err != nil {
			log.Warn("Orchestrator", "Skipping corrupt consumptionData column", map[string]interface{}{"error": err.Error()})
		} else {
			slices.ConsumptionData = &meta
		}
	}

	slices.AnalysisResults = json.RawMessage(record.AnalysisResults)
	slices.PVConfiguration = json.RawMessage(record.PVConfiguration)
	slices.MasterVariant = json.RawMessage(record.MasterVariant)
	slices.Economics = json.RawMessage(record.Economics)
	slices.Settings = json.RawMessage(record.Settings)

	if len(record.HourlyProduction) > 0 {
		if err := json.Unmarshal(record.HourlyProduction, &slices.HourlyProduction); err != nil {
			log.Warn("Orchestrator", "Skipping corrupt hourlyProduction column", map[string]interface{}{"error": err.Error()})
		}
	}
	if len(record.MasterVariantKey) > 0 {
		if err := json.Unmarshal(record.MasterVariantKey, &slices.MasterVariantKey); err != nil {
			log.Warn("Orchestrator", "Skipping corrupt masterVariantKey column", map[string]interface{}{"error": err.Error()})
		}
	}
	if len(record.CurrentScenario) > 0 {
		if err := json.Unmarshal(record.CurrentScenario, &slices.Scenario); err != nil {
			log.Warn("Orchestrator", "Skipping corrupt currentScenario column", map[string]interface{}{"error": err.Error()})
		}
	}
	if len(record.YearCoverage) > 0 {
		var coverage entity.YearCoverage
		if err := json.Unmarshal(record.YearCoverage, &coverage); err != nil {
			log.Warn("Orchestrator", "Skipping corrupt analyticalYearCoverage column", map[string]interface{}{"error": err.Error()})
		} else {
			slices.YearCoverage = &coverage
		}
	}

	var rawSeries []entity.SeriesPoint
	if len(record.RawConsumptionSeries) > 0 {
		if err := json.Unmarshal(record.RawConsumptionSeries, &rawSeries); err != nil {
			log.Warn("Orchestrator", "Skipping corrupt rawConsumptionSeries column", map[string]interface{}{"error": err.Error()})
		}
	}

	return slices, rawSeries
}
