package memory

import (
	"context"
	"encoding/json"

	"pv-analysis-be/internal/entity"
	"pv-analysis-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

const (
	keySettings = "sticky:settings"
	keyScenario = "sticky:scenario"
	keyProject  = "sticky:project"
)

// StickyRepository is the in-memory fallback used when Redis is unreachable
// (and by the test suite). Entries never expire; "durable" here means the
// process lifetime only.
type StickyRepository struct {
	cache *cache.Cache
}

func NewStickyRepository() *StickyRepository {
	return &StickyRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

var _ contract.StickyRepository = (*StickyRepository)(nil)

func (r *StickyRepository) SaveSettings(_ context.Context, settings json.RawMessage) error {
	r.cache.Set(keySettings, settings, cache.NoExpiration)
	return nil
}

func (r *StickyRepository) LoadSettings(_ context.Context) (json.RawMessage, bool, error) {
	if x, found := r.cache.Get(keySettings); found {
		return x.(json.RawMessage), true, nil
	}
	return nil, false, nil
}

func (r *StickyRepository) SaveScenario(_ context.Context, scenario entity.Scenario) error {
	r.cache.Set(keyScenario, scenario, cache.NoExpiration)
	return nil
}

func (r *StickyRepository) LoadScenario(_ context.Context) (entity.Scenario, bool, error) {
	if x, found := r.cache.Get(keyScenario); found {
		return x.(entity.Scenario), true, nil
	}
	return "", false, nil
}

func (r *StickyRepository) SaveProject(_ context.Context, identity entity.ProjectIdentity) error {
	r.cache.Set(keyProject, identity, cache.NoExpiration)
	return nil
}

func (r *StickyRepository) LoadProject(_ context.Context) (*entity.ProjectIdentity, error) {
	if x, found := r.cache.Get(keyProject); found {
		identity := x.(entity.ProjectIdentity)
		return &identity, nil
	}
	return nil, nil
}

func (r *StickyRepository) ClearProject(_ context.Context) error {
	r.cache.Delete(keyProject)
	return nil
}
