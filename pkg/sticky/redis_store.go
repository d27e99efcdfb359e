// Package sticky provides the Redis-backed durable mirror for session-scoped
// state: settings, scenario and the active project identity survive page
// reloads independently of the project record.
package sticky

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pv-analysis-be/internal/entity"
	"pv-analysis-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const (
	keySettings = "shell:sticky:settings"
	keyScenario = "shell:sticky:scenario"
	keyProject  = "shell:sticky:project"
)

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

var _ contract.StickyRepository = (*RedisStore)(nil)

func (s *RedisStore) SaveSettings(ctx context.Context, settings json.RawMessage) error {
	return s.rdb.Set(ctx, keySettings, []byte(settings), 0).Err()
}

func (s *RedisStore) LoadSettings(ctx context.Context) (json.RawMessage, bool, error) {
	raw, err := s.rdb.Get(ctx, keySettings).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load sticky settings: %w", err)
	}
	return json.RawMessage(raw), true, nil
}

func (s *RedisStore) SaveScenario(ctx context.Context, scenario entity.Scenario) error {
	return s.rdb.Set(ctx, keyScenario, string(scenario), 0).Err()
}

func (s *RedisStore) LoadScenario(ctx context.Context) (entity.Scenario, bool, error) {
	raw, err := s.rdb.Get(ctx, keyScenario).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load sticky scenario: %w", err)
	}
	return entity.Scenario(raw), true, nil
}

func (s *RedisStore) SaveProject(ctx context.Context, identity entity.ProjectIdentity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal project identity: %w", err)
	}
	return s.rdb.Set(ctx, keyProject, data, 0).Err()
}

func (s *RedisStore) LoadProject(ctx context.Context) (*entity.ProjectIdentity, error) {
	raw, err := s.rdb.Get(ctx, keyProject).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sticky project: %w", err)
	}
	var identity entity.ProjectIdentity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, fmt.Errorf("unmarshal sticky project: %w", err)
	}
	return &identity, nil
}

func (s *RedisStore) ClearProject(ctx context.Context) error {
	return s.rdb.Del(ctx, keyProject).Err()
}
