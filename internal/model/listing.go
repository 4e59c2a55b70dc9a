package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== 状态常量 ====================

const (
	// 挂单镜像状态
	ListingStatusSubmitted = "submitted" // 已提交到主站
	ListingStatusActive    = "active"    // 主站已上架
	ListingStatusRemoved   = "removed"   // 主站已下架
)

// ==================== 数据库模型 ====================

// SubmittedListing 已提交挂单的本地镜像
// 提交成功后落库，用于"我的挂单"列表与对账
type SubmittedListing struct {
	ID             int64          `gorm:"primaryKey;autoIncrement"`
	CreatedAt      time.Time      `gorm:"index"`
	UpdatedAt      time.Time      `gorm:"index"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
	UserID         int64          `gorm:"index;not null;comment:用户ID"`
	ListingID      int64          `gorm:"uniqueIndex;not null;comment:主站挂单ID"`
	CategoryID     int64          `gorm:"index;comment:分类ID"`
	Title          string         `gorm:"size:140;comment:标题"`
	Description    string         `gorm:"type:text;comment:描述"`
	Condition      string         `gorm:"size:32;comment:成色"`
	Brand          string         `gorm:"size:64;comment:品牌"`
	PriceType      string         `gorm:"size:16;comment:定价方式"`
	AskingPrice    float64        `gorm:"comment:要价"`
	OriginalPrice  float64        `gorm:"comment:原价"`
	Quantity       int            `gorm:"default:1;comment:数量"`
	Unit           string         `gorm:"size:16;comment:单位"`
	PickupLocation string         `gorm:"size:255;comment:自提地址"`
	DeliveryOption string         `gorm:"size:32;comment:交付方式"`

	MediaURLs datatypes.JSONSlice[string] `gorm:"type:json;comment:图片URL"`
	Status    string                      `gorm:"size:32;index;default:submitted;comment:状态"`
}

func (*SubmittedListing) TableName() string {
	return "submitted_listings"
}

// Category 主站分类的本地缓存
type Category struct {
	ID        int64     `gorm:"primaryKey;comment:主站分类ID"`
	UpdatedAt time.Time `gorm:"index"`
	Name      string    `gorm:"size:64;not null;comment:分类名"`
	ParentID  int64     `gorm:"index;default:0;comment:父分类ID"`
	SortOrder int       `gorm:"default:0;comment:排序"`
}

func (*Category) TableName() string {
	return "categories"
}
