package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jiancai_surplus_v1/internal/model"
)

// ==================== 测试辅助 ====================

func setupRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&model.SubmittedListing{}, &model.Category{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func seedListing(t *testing.T, repo ListingRepository, userID, listingID int64, status string) *model.SubmittedListing {
	t.Helper()
	l := &model.SubmittedListing{
		UserID:         userID,
		ListingID:      listingID,
		Title:          fmt.Sprintf("库存建材 %d", listingID),
		AskingPrice:    100,
		Quantity:       10,
		Unit:           model.UnitPiece,
		DeliveryOption: model.DeliveryPickupOnly,
		MediaURLs:      []string{"https://blob.test/a.png"},
		Status:         status,
	}
	if err := repo.Create(context.Background(), l); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	return l
}

// ==================== 挂单镜像 ====================

func TestListingRepo_CreateAndGet(t *testing.T) {
	repo := NewListingRepository(setupRepoTestDB(t))
	ctx := context.Background()

	created := seedListing(t, repo, 1, 9001, model.ListingStatusSubmitted)

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if got.ListingID != 9001 || got.UserID != 1 {
		t.Errorf("读取结果不符: %+v", got)
	}
	if len(got.MediaURLs) != 1 {
		t.Errorf("JSON 图片列表未正确存取: %v", got.MediaURLs)
	}

	byListing, err := repo.GetByListingID(ctx, 9001)
	if err != nil || byListing.ID != created.ID {
		t.Errorf("GetByListingID 失败: %v", err)
	}
}

func TestListingRepo_ListByUser(t *testing.T) {
	repo := NewListingRepository(setupRepoTestDB(t))
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		seedListing(t, repo, 1, 9000+i, model.ListingStatusSubmitted)
	}
	seedListing(t, repo, 2, 8001, model.ListingStatusSubmitted)
	seedListing(t, repo, 1, 7001, model.ListingStatusRemoved)

	// 按用户过滤
	listings, total, err := repo.ListByUser(ctx, ListingFilter{UserID: 1})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if total != 6 || len(listings) != 6 {
		t.Errorf("用户 1 应有 6 条, got total=%d len=%d", total, len(listings))
	}

	// 状态过滤
	listings, total, err = repo.ListByUser(ctx, ListingFilter{UserID: 1, Status: model.ListingStatusRemoved})
	if err != nil || total != 1 {
		t.Errorf("状态过滤应剩 1 条, got %d (%v)", total, err)
	}
	if len(listings) == 1 && listings[0].ListingID != 7001 {
		t.Errorf("过滤结果不符: %+v", listings[0])
	}

	// 分页
	listings, total, err = repo.ListByUser(ctx, ListingFilter{UserID: 1, Page: 2, PageSize: 4})
	if err != nil {
		t.Fatalf("分页查询失败: %v", err)
	}
	if total != 6 || len(listings) != 2 {
		t.Errorf("第 2 页应剩 2 条, got total=%d len=%d", total, len(listings))
	}
}

func TestListingRepo_UpdateStatus(t *testing.T) {
	repo := NewListingRepository(setupRepoTestDB(t))
	ctx := context.Background()

	created := seedListing(t, repo, 1, 9001, model.ListingStatusSubmitted)
	if err := repo.UpdateStatus(ctx, created.ID, model.ListingStatusActive); err != nil {
		t.Fatalf("更新状态失败: %v", err)
	}

	got, _ := repo.GetByID(ctx, created.ID)
	if got.Status != model.ListingStatusActive {
		t.Errorf("状态 = %q, want active", got.Status)
	}
}

// 主站挂单ID唯一，重复镜像应失败
func TestListingRepo_DuplicateListingID(t *testing.T) {
	repo := NewListingRepository(setupRepoTestDB(t))
	ctx := context.Background()

	seedListing(t, repo, 1, 9001, model.ListingStatusSubmitted)
	dup := &model.SubmittedListing{UserID: 1, ListingID: 9001, Status: model.ListingStatusSubmitted}
	if err := repo.Create(ctx, dup); err == nil {
		t.Error("重复 listing_id 应失败")
	}
}

// ==================== 分类缓存 ====================

func TestCategoryRepo_ReplaceAll(t *testing.T) {
	repo := NewCategoryRepository(setupRepoTestDB(t))
	ctx := context.Background()

	first := []model.Category{
		{ID: 3, Name: "瓷砖", SortOrder: 2},
		{ID: 1, Name: "水泥", SortOrder: 1},
	}
	if err := repo.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("首次写入失败: %v", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(got) != 2 || got[0].Name != "水泥" {
		t.Errorf("应按 sort_order 排序: %+v", got)
	}

	// 整表替换：旧条目消失，新条目生效
	second := []model.Category{
		{ID: 5, Name: "钢材", SortOrder: 1},
	}
	if err := repo.ReplaceAll(ctx, second); err != nil {
		t.Fatalf("替换失败: %v", err)
	}

	got, _ = repo.List(ctx)
	if len(got) != 1 || got[0].ID != 5 {
		t.Errorf("替换后应只剩新条目: %+v", got)
	}

	count, _ := repo.Count(ctx)
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

// ==================== 草稿存储 ====================

func TestMemoryDraftStore_RoundTrip(t *testing.T) {
	store := NewMemoryDraftStore()
	ctx := context.Background()

	draft := &model.PersistedDraft{
		Record: model.SurplusDraft{
			Title:       "库存岩板清仓",
			CategoryID:  7,
			AskingPrice: 260,
		},
		Media: []model.MediaRef{
			{ID: "m1", Filename: "a.png", ContentType: "image/png", Primary: true},
		},
		Step:    3,
		SavedAt: time.Now().Unix(),
	}

	if err := store.Save(ctx, "surplus_listing:42", draft); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	got, err := store.Load(ctx, "surplus_listing:42")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got == nil {
		t.Fatal("应读到草稿")
	}
	if got.Record.Title != draft.Record.Title || got.Step != 3 || len(got.Media) != 1 {
		t.Errorf("往返结果不符: %+v", got)
	}
}

// 同键新快照覆盖旧快照
func TestMemoryDraftStore_Overwrite(t *testing.T) {
	store := NewMemoryDraftStore()
	ctx := context.Background()

	store.Save(ctx, "k", &model.PersistedDraft{Record: model.SurplusDraft{Title: "旧"}, Step: 1})
	store.Save(ctx, "k", &model.PersistedDraft{Record: model.SurplusDraft{Title: "新"}, Step: 2})

	got, _ := store.Load(ctx, "k")
	if got == nil || got.Record.Title != "新" || got.Step != 2 {
		t.Errorf("新快照应覆盖旧快照: %+v", got)
	}
}

// 无草稿返回 (nil, nil)，不是错误
func TestMemoryDraftStore_LoadAbsent(t *testing.T) {
	store := NewMemoryDraftStore()

	got, err := store.Load(context.Background(), "no-such-key")
	if err != nil || got != nil {
		t.Errorf("无草稿应返回 (nil, nil), got (%v, %v)", got, err)
	}
}

func TestMemoryDraftStore_Delete(t *testing.T) {
	store := NewMemoryDraftStore()
	ctx := context.Background()

	store.Save(ctx, "k", &model.PersistedDraft{Step: 1})
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}

	if got, _ := store.Load(ctx, "k"); got != nil {
		t.Error("删除后不应读到草稿")
	}

	// 删除不存在的键也不报错
	if err := store.Delete(ctx, "no-such-key"); err != nil {
		t.Errorf("删除不存在键不应报错: %v", err)
	}
}
