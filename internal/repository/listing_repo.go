package repository

import (
	"context"

	"gorm.io/gorm"

	"jiancai_surplus_v1/internal/model"
)

// ==================== 仓储接口 ====================

// ListingRepository 已提交挂单镜像仓储接口
type ListingRepository interface {
	Create(ctx context.Context, listing *model.SubmittedListing) error
	GetByID(ctx context.Context, id int64) (*model.SubmittedListing, error)
	GetByListingID(ctx context.Context, listingID int64) (*model.SubmittedListing, error)
	ListByUser(ctx context.Context, filter ListingFilter) ([]model.SubmittedListing, int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// ListingFilter 挂单列表过滤条件
type ListingFilter struct {
	UserID   int64
	Status   string
	Page     int
	PageSize int
}

// ==================== 仓储实现 ====================

type listingRepo struct {
	db *gorm.DB
}

// NewListingRepository 创建挂单镜像仓储
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepo{db: db}
}

func (r *listingRepo) Create(ctx context.Context, listing *model.SubmittedListing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepo) GetByID(ctx context.Context, id int64) (*model.SubmittedListing, error) {
	var listing model.SubmittedListing
	if err := r.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepo) GetByListingID(ctx context.Context, listingID int64) (*model.SubmittedListing, error) {
	var listing model.SubmittedListing
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepo) ListByUser(ctx context.Context, filter ListingFilter) ([]model.SubmittedListing, int64, error) {
	var listings []model.SubmittedListing
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SubmittedListing{})

	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.Order("created_at DESC").Limit(filter.PageSize).Offset(offset).Find(&listings).Error; err != nil {
		return nil, 0, err
	}

	return listings, total, nil
}

func (r *listingRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.SubmittedListing{}).
		Where("id = ?", id).
		Update("status", status).Error
}
