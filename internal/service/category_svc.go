package service

import (
	"context"
	"log"
	"sync"
	"time"

	"jiancai_surplus_v1/internal/model"
	"jiancai_surplus_v1/internal/repository"
	"jiancai_surplus_v1/pkg/marketplace"
)

// 分类缓存默认刷新周期
const defaultCategoryTTL = 6 * time.Hour

// ==================== 服务定义 ====================

// CategoryService 主站分类参考数据服务
// 本地缓存分类表，过期后从主站增量刷新；主站不可用时继续提供旧数据
type CategoryService struct {
	repo   repository.CategoryRepository
	client *marketplace.Client

	mu         sync.Mutex
	refreshTTL time.Duration
	lastSync   time.Time
}

// NewCategoryService 创建分类服务
func NewCategoryService(repo repository.CategoryRepository, client *marketplace.Client, refreshTTL time.Duration) *CategoryService {
	if refreshTTL <= 0 {
		refreshTTL = defaultCategoryTTL
	}
	return &CategoryService{
		repo:       repo,
		client:     client,
		refreshTTL: refreshTTL,
	}
}

// ==================== 查询 ====================

// List 获取分类列表，缓存过期时先刷新
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	if s.needRefresh(ctx) {
		if err := s.Sync(ctx); err != nil {
			// 刷新失败继续用本地旧数据
			log.Printf("[CategoryService] 刷新分类失败: %v", err)
		}
	}
	return s.repo.List(ctx)
}

// ==================== 同步 ====================

// Sync 从主站拉取分类并整表替换本地缓存
// 主站返回空列表时保留本地数据，避免瞬时故障清空缓存
func (s *CategoryService) Sync(ctx context.Context) error {
	dtos, err := s.client.ListCategories(ctx)
	if err != nil {
		return err
	}

	if len(dtos) == 0 {
		log.Printf("[CategoryService] 主站返回空分类列表，保留本地缓存")
		s.markSynced()
		return nil
	}

	categories := make([]model.Category, len(dtos))
	for i, dto := range dtos {
		categories[i] = model.Category{
			ID:        dto.ID,
			Name:      dto.Name,
			ParentID:  dto.ParentID,
			SortOrder: dto.SortOrder,
		}
	}

	if err := s.repo.ReplaceAll(ctx, categories); err != nil {
		return err
	}

	s.markSynced()
	log.Printf("[CategoryService] 分类缓存已刷新，共 %d 条", len(categories))
	return nil
}

func (s *CategoryService) needRefresh(ctx context.Context) bool {
	s.mu.Lock()
	stale := s.lastSync.IsZero() || time.Since(s.lastSync) > s.refreshTTL
	s.mu.Unlock()

	if stale {
		return true
	}

	// 周期内若本地被清空也立即补一次
	count, err := s.repo.Count(ctx)
	return err == nil && count == 0
}

func (s *CategoryService) markSynced() {
	s.mu.Lock()
	s.lastSync = time.Now()
	s.mu.Unlock()
}
