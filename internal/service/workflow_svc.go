package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"jiancai_surplus_v1/internal/model"
	"jiancai_surplus_v1/internal/repository"
	"jiancai_surplus_v1/internal/workflow"
	"jiancai_surplus_v1/pkg/marketplace"
)

// ==================== 错误定义 ====================

var (
	ErrSessionNotFound = errors.New("流程不存在或已过期")
	ErrForbidden       = errors.New("无权访问该流程")
)

// 默认自动保存周期
const defaultAutosaveInterval = 30 * time.Second

// ==================== 服务定义 ====================

// WorkflowService 向导式提交流程服务
// 维护进行中的流程实例，串联草稿落盘、图片暂存与主站提交
type WorkflowService struct {
	mu       sync.Mutex
	sessions map[string]*workflow.Session

	draftStore repository.DraftStore
	listings   repository.ListingRepository
	client     *marketplace.Client
	blobs      workflow.BlobStore

	autosaveInterval time.Duration
}

// NewWorkflowService 创建流程服务
func NewWorkflowService(
	draftStore repository.DraftStore,
	listings repository.ListingRepository,
	client *marketplace.Client,
	blobs workflow.BlobStore,
	autosaveInterval time.Duration,
) *WorkflowService {
	if autosaveInterval <= 0 {
		autosaveInterval = defaultAutosaveInterval
	}
	return &WorkflowService{
		sessions:         make(map[string]*workflow.Session),
		draftStore:       draftStore,
		listings:         listings,
		client:           client,
		blobs:            blobs,
		autosaveInterval: autosaveInterval,
	}
}

// ==================== 流程生命周期 ====================

// Open 打开提交流程
// 同一用户已有未完成流程时直接复用（换上最新凭证）；否则新建实例并尝试恢复落盘草稿
func (s *WorkflowService) Open(ctx context.Context, userID int64, token string) (*workflow.Session, bool, error) {
	if sess := s.findActive(userID, token); sess != nil {
		return sess, false, nil
	}

	sess := workflow.NewSession(userID, token, s.blobs)

	restored := false
	draft, err := s.draftStore.Load(ctx, sess.DraftKey())
	if err != nil {
		// 草稿读取失败按无草稿处理，不阻断开单
		log.Printf("[WorkflowService] 读取草稿失败 user=%d: %v", userID, err)
	} else if draft != nil {
		sess.RestoreDraft(*draft)
		restored = true
	}

	// 草稿加载期间并发 Open 可能已为同一用户建好实例，入表前复查
	s.mu.Lock()
	for _, existing := range s.sessions {
		if existing.UserID == userID && !existing.Terminal() {
			s.mu.Unlock()
			existing.RefreshToken(token)
			existing.Touch()
			sess.Stop()
			return existing, false, nil
		}
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	sess.StartAutosave(s.autosaveInterval, s.saveDraft)
	return sess, restored, nil
}

// findActive 查找该用户未完成的流程实例
func (s *WorkflowService) findActive(userID int64, token string) *workflow.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.UserID == userID && !sess.Terminal() {
			sess.RefreshToken(token)
			sess.Touch()
			return sess
		}
	}
	return nil
}

// Get 获取流程实例并校验归属
func (s *WorkflowService) Get(sessionID string, userID int64) (*workflow.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.UserID != userID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// Cancel 放弃流程：删除落盘草稿、清理暂存图片并销毁实例
func (s *WorkflowService) Cancel(ctx context.Context, sessionID string, userID int64) error {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return err
	}

	// 先停自动保存再删草稿，避免在途周期把草稿写回
	sess.Stop()
	if err := s.draftStore.Delete(ctx, sess.DraftKey()); err != nil {
		log.Printf("[WorkflowService] 删除草稿失败 user=%d: %v", userID, err)
	}
	sess.Media.PurgeBlobs(ctx)

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// ==================== 表单与步骤 ====================

// UpdateFields 合并字段更新
func (s *WorkflowService) UpdateFields(sessionID string, userID int64, fields map[string]interface{}) (*workflow.Session, error) {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	sess.UpdateFields(fields)
	return sess, nil
}

// Advance 校验当前步骤并前进
func (s *WorkflowService) Advance(sessionID string, userID int64) (*workflow.Session, workflow.ValidationErrors, error) {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	errs, err := sess.Advance()
	return sess, errs, err
}

// Back 返回上一步骤
func (s *WorkflowService) Back(sessionID string, userID int64) (*workflow.Session, error) {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return sess, sess.Back()
}

// EditStep 从预览回到指定步骤
func (s *WorkflowService) EditStep(sessionID string, userID int64, step int) (*workflow.Session, error) {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return sess, sess.EditStep(step)
}

// ==================== 图片暂存 ====================

// AddMedia 批量暂存图片，返回的 error 是面向用户的拒收说明
func (s *WorkflowService) AddMedia(sessionID string, userID int64, files []workflow.IncomingFile) (*workflow.Session, error) {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return sess, sess.Media.AddFiles(files)
}

// RemoveMedia 删除暂存图片
func (s *WorkflowService) RemoveMedia(sessionID string, userID int64, mediaID string) error {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return err
	}
	if !sess.Media.Remove(mediaID) {
		return fmt.Errorf("图片不存在")
	}
	return nil
}

// SetPrimaryMedia 指定主图
func (s *WorkflowService) SetPrimaryMedia(sessionID string, userID int64, mediaID string) error {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return err
	}
	if !sess.Media.SetPrimary(mediaID) {
		return fmt.Errorf("图片不存在")
	}
	return nil
}

// ==================== 提交 ====================

// SubmitResult 提交结果
// Errors 非空表示本地复核未过（未发起远端调用）或远端返回了字段级错误
type SubmitResult struct {
	ListingID int64
	Errors    workflow.ValidationErrors
	Step      int
	Banner    string
}

// Submit 确认提交：复核全部步骤后创建主站挂单并按序上传图片
// 提交进行中或已完成的重复调用会被状态机拒绝
func (s *WorkflowService) Submit(ctx context.Context, sessionID string, userID int64) (*SubmitResult, error) {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	if err := sess.BeginSubmit(); err != nil {
		return nil, err
	}

	// 进入提交中后与请求上下文脱钩：用户关页不中断已发起的远端创建
	ctx = context.WithoutCancel(ctx)

	// 提交前整单复核，任何一步未过都不发起远端调用
	draft := sess.Form.Snapshot()
	errs, failStep := workflow.ValidateAll(draft, sess.Media.Count())
	if !errs.Empty() {
		sess.Form.ReplaceErrors(errs)
		sess.FailToStep(failStep)
		return &SubmitResult{Errors: errs, Step: failStep}, nil
	}

	resp, err := s.client.CreateListing(ctx, sess.BearerToken(), buildListingRequest(draft))
	if err != nil {
		return s.failSubmit(sess, err), nil
	}

	s.uploadMedia(ctx, sess, resp.ListingID)

	// 先进终态并停掉自动保存，再删草稿
	// Stop 返回即保证不会再有落盘，删除后的草稿键不会被在途周期救活
	sess.CompleteSubmit()
	sess.Stop()

	// 提交成功后草稿即作废，删除失败只记录不回滚
	if err := s.draftStore.Delete(ctx, sess.DraftKey()); err != nil {
		log.Printf("[WorkflowService] 提交后删除草稿失败 user=%d: %v", userID, err)
	}

	if err := s.listings.Create(ctx, buildListingMirror(userID, resp, draft, sess.Media.Refs())); err != nil {
		log.Printf("[WorkflowService] 挂单镜像落库失败 listing=%d: %v", resp.ListingID, err)
	}

	return &SubmitResult{ListingID: resp.ListingID}, nil
}

// failSubmit 把远端失败归类为字段级错误或横幅错误
func (s *WorkflowService) failSubmit(sess *workflow.Session, err error) *SubmitResult {
	var apiErr *marketplace.APIError
	if errors.As(err, &apiErr) && apiErr.HasFieldErrors() {
		fieldErrs := workflow.ValidationErrors(apiErr.FieldErrors)
		sess.Form.MergeErrors(fieldErrs)

		step := workflow.StepForFields(fieldErrs)
		sess.FailToStep(step)
		return &SubmitResult{Errors: sess.Form.Errors(), Step: step}
	}

	msg := "提交失败，请稍后重试"
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	log.Printf("[WorkflowService] 创建挂单失败 session=%s: %v", sess.ID, err)

	sess.FailWithBanner(msg)
	return &SubmitResult{Banner: msg}
}

// uploadMedia 按暂存顺序上传图片，rank 即列表位置
// 单张失败不回滚已创建的挂单，只记录日志
func (s *WorkflowService) uploadMedia(ctx context.Context, sess *workflow.Session, listingID int64) {
	for i, f := range sess.Media.Files() {
		if len(f.Data) == 0 {
			// 草稿恢复的图片只剩引用没有字节，无法重传
			log.Printf("[WorkflowService] 第 %d 张图片缺少数据，跳过上传 listing=%d", i+1, listingID)
			continue
		}
		if _, err := s.client.UploadListingImage(ctx, sess.BearerToken(), listingID, f.Filename, f.Data, i+1, f.Primary); err != nil {
			log.Printf("[WorkflowService] 上传第 %d 张图片失败 listing=%d: %v", i+1, listingID, err)
		}
	}
}

// ==================== 挂单镜像查询 ====================

// ListSubmitted 分页查询当前用户已提交的挂单镜像
func (s *WorkflowService) ListSubmitted(ctx context.Context, userID int64, status string, page, pageSize int) ([]model.SubmittedListing, int64, error) {
	return s.listings.ListByUser(ctx, repository.ListingFilter{
		UserID:   userID,
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
}

// ==================== 过期清理 ====================

// SweepIdle 清理闲置超时的流程实例，返回清理数量
// 未提交实例的暂存图片一并清理；草稿落盘保留，供用户下次恢复
func (s *WorkflowService) SweepIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	var expired []*workflow.Session
	for id, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Stop()
		if !sess.Terminal() {
			sess.Media.PurgeBlobs(ctx)
		}
	}
	return len(expired)
}

// ==================== 内部 ====================

// saveDraft 自动保存回调
func (s *WorkflowService) saveDraft(sess *workflow.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshot := sess.Snapshot()
	return s.draftStore.Save(ctx, sess.DraftKey(), &snapshot)
}

// buildListingRequest 把表单快照转换为主站创建请求
// 可选字段保持指针语义：未填写即不出现在请求体中
func buildListingRequest(d model.SurplusDraft) *marketplace.CreateListingRequest {
	return &marketplace.CreateListingRequest{
		CategoryID:     d.CategoryID,
		Title:          d.Title,
		Description:    d.Description,
		Condition:      d.Condition,
		Brand:          d.Brand,
		PriceType:      d.PriceType,
		AskingPrice:    d.AskingPrice,
		OriginalPrice:  d.OriginalPrice,
		Quantity:       d.Quantity,
		Unit:           d.Unit,
		PickupLocation: d.PickupLocation,
		DeliveryOption: d.DeliveryOption,
		DeliveryNotes:  d.DeliveryNotes,
	}
}

// buildListingMirror 提交成功后生成本地镜像记录
func buildListingMirror(userID int64, resp *marketplace.CreateListingResponse, d model.SurplusDraft, media []model.MediaRef) *model.SubmittedListing {
	mirror := &model.SubmittedListing{
		UserID:         userID,
		ListingID:      resp.ListingID,
		CategoryID:     d.CategoryID,
		Title:          d.Title,
		Description:    d.Description,
		Condition:      d.Condition,
		PriceType:      d.PriceType,
		AskingPrice:    d.AskingPrice,
		Quantity:       d.Quantity,
		Unit:           d.Unit,
		PickupLocation: d.PickupLocation,
		DeliveryOption: d.DeliveryOption,
		Status:         model.ListingStatusSubmitted,
	}
	if d.Brand != nil {
		mirror.Brand = *d.Brand
	}
	if d.OriginalPrice != nil {
		mirror.OriginalPrice = *d.OriginalPrice
	}
	urls := make([]string, 0, len(media))
	for _, m := range media {
		if m.StorageURL != "" {
			urls = append(urls, m.StorageURL)
		}
	}
	mirror.MediaURLs = urls
	return mirror
}
