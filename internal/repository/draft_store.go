package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"jiancai_surplus_v1/internal/model"
)

// ==================== 键与默认值 ====================

const (
	draftKeyPrefix  = "surplus:draft:"
	defaultDraftTTL = 7 * 24 * time.Hour
)

// ==================== 接口定义 ====================

// DraftStore 草稿落盘存储接口
// 同一键下新快照覆盖旧快照；Load 在无草稿时返回 (nil, nil)
type DraftStore interface {
	Save(ctx context.Context, key string, draft *model.PersistedDraft) error
	Load(ctx context.Context, key string) (*model.PersistedDraft, error)
	Delete(ctx context.Context, key string) error
}

// ==================== Redis 实现 ====================

type redisDraftStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisDraftStore 创建 Redis 草稿存储
// ttl 为 0 时取默认 7 天
func NewRedisDraftStore(client redis.UniversalClient, ttl time.Duration) DraftStore {
	if ttl == 0 {
		ttl = defaultDraftTTL
	}
	return &redisDraftStore{client: client, ttl: ttl}
}

func (s *redisDraftStore) Save(ctx context.Context, key string, draft *model.PersistedDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, draftKeyPrefix+key, data, s.ttl).Err()
}

// Load 读取草稿快照
// 键不存在与内容损坏都返回 (nil, nil)：损坏的草稿静默丢弃，从空记录开始
func (s *redisDraftStore) Load(ctx context.Context, key string) (*model.PersistedDraft, error) {
	data, err := s.client.Get(ctx, draftKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var draft model.PersistedDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		// 损坏的草稿不值得让用户看到错误，直接丢弃
		_ = s.client.Del(ctx, draftKeyPrefix+key).Err()
		return nil, nil
	}

	return &draft, nil
}

func (s *redisDraftStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, draftKeyPrefix+key).Err()
}

// ==================== 内存实现 ====================

// memoryDraftStore 进程内存储，测试与单机开发用
type memoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string][]byte
}

// NewMemoryDraftStore 创建内存草稿存储
func NewMemoryDraftStore() DraftStore {
	return &memoryDraftStore{drafts: make(map[string][]byte)}
}

func (s *memoryDraftStore) Save(_ context.Context, key string, draft *model.PersistedDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[key] = data
	return nil
}

func (s *memoryDraftStore) Load(_ context.Context, key string) (*model.PersistedDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.drafts[key]
	if !ok {
		return nil, nil
	}

	var draft model.PersistedDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		delete(s.drafts, key)
		return nil, nil
	}
	return &draft, nil
}

func (s *memoryDraftStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}
