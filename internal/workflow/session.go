package workflow

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"jiancai_surplus_v1/internal/model"
)

// WorkflowTypeSurplus 尾货挂单工作流（落盘键的组成部分）
const WorkflowTypeSurplus = "surplus_listing"

// ==================== Session ====================

// Session 一次向导式提交流程实例
// 每个实例独占自己的表单存储、图片暂存与草稿键，实例之间无共享可变状态
// 身份上下文（用户ID、bearer 凭证）在创建时注入，不读取任何全局状态
type Session struct {
	ID           string
	UserID       int64
	WorkflowType string

	Form  *FormStore
	Media *MediaStage

	machine *Machine
	dirty   atomic.Bool

	mu         sync.Mutex
	token      string
	banner     string
	lastActive time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	saveDone chan struct{}
}

// NewSession 创建流程实例，初始状态 editing(1)
func NewSession(userID int64, token string, blobs BlobStore) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		token:        token,
		WorkflowType: WorkflowTypeSurplus,
		Form:         NewFormStore(),
		machine:      NewMachine(),
		lastActive:   time.Now(),
		stopCh:       make(chan struct{}),
	}
	s.Media = NewMediaStage(s.ID, blobs, s.MarkDirty)
	return s
}

// ==================== 基础状态 ====================

// State 当前状态机状态
func (s *Session) State() State {
	return s.machine.State()
}

// MarkDirty 标脏，下个自动保存周期落盘
func (s *Session) MarkDirty() {
	s.dirty.Store(true)
	s.Touch()
}

// Touch 刷新活跃时间
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive 最近活跃时间（过期清理用）
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// BearerToken 随流程携带的用户凭证
func (s *Session) BearerToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// RefreshToken 复用流程时换上最新凭证，旧凭证可能已过期
func (s *Session) RefreshToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Banner 当前横幅错误（无则为空串）
func (s *Session) Banner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

// SetBanner 设置横幅错误
func (s *Session) SetBanner(msg string) {
	s.mu.Lock()
	s.banner = msg
	s.mu.Unlock()
}

// ClearBanner 清除横幅（手动关闭或下一次状态变化）
func (s *Session) ClearBanner() {
	s.SetBanner("")
}

// ==================== 表单与步骤操作 ====================

// UpdateFields 合并字段更新；编辑会清除对应字段的校验错误
func (s *Session) UpdateFields(partial map[string]interface{}) {
	s.Form.SetMany(partial)
	s.ClearBanner()
	s.MarkDirty()
}

// Advance 校验当前步骤并前进
// 校验未通过时整批重算错误集并停在原地
func (s *Session) Advance() (ValidationErrors, error) {
	s.Touch()
	state := s.machine.State()

	step := state.Step
	if state.Phase != PhaseEditing {
		// 预览/失败态的"确认"同样走 Advance，复核最后一步
		step = StepCount
	}

	errs := ValidateStep(step, s.Form.Snapshot(), s.Media.Count())
	s.Form.ReplaceErrors(errs)

	if !errs.Empty() {
		return errs, nil
	}

	s.ClearBanner()
	return nil, s.machine.AdvanceValidated()
}

// Back 返回上一步骤
func (s *Session) Back() error {
	s.Touch()
	return s.machine.Back()
}

// EditStep 从预览回到指定步骤
func (s *Session) EditStep(step int) error {
	s.Touch()
	return s.machine.EditStep(step)
}

// ==================== 提交阶段 ====================

// BeginSubmit 进入提交中状态；重复提交与终态重提会被拒绝
func (s *Session) BeginSubmit() error {
	s.Touch()
	return s.machine.BeginSubmit()
}

// CompleteSubmit 提交成功，进入终态
func (s *Session) CompleteSubmit() {
	s.ClearBanner()
	s.machine.CompleteSubmit()
}

// FailToStep 提交失败且能定位字段，回到出错步骤
func (s *Session) FailToStep(step int) {
	s.machine.FailToStep(step)
}

// FailWithBanner 提交失败且无法定位字段，挂横幅等待重试
func (s *Session) FailWithBanner(msg string) {
	s.SetBanner(msg)
	s.machine.FailWithBanner()
}

// Terminal 是否已提交完成
func (s *Session) Terminal() bool {
	return s.machine.Terminal()
}

// ==================== 落盘快照 ====================

// Snapshot 生成落盘快照
func (s *Session) Snapshot() model.PersistedDraft {
	return model.PersistedDraft{
		Record:  s.Form.Snapshot(),
		Media:   s.Media.Refs(),
		Step:    s.machine.State().Step,
		SavedAt: time.Now().Unix(),
	}
}

// RestoreDraft 用落盘快照恢复（挂载时调用一次）
func (s *Session) RestoreDraft(pd model.PersistedDraft) {
	s.Form.Restore(pd.Record)
	s.Media.RestoreRefs(pd.Media)
	s.machine.RestoreStep(pd.Step)
}

// ==================== 自动保存 ====================

// StartAutosave 启动本实例专属的定时保存循环
// 仅在记录有可识别内容且被标脏时落盘；进入终态或 Stop 后不再落盘
func (s *Session) StartAutosave(interval time.Duration, save func(*Session) error) {
	s.saveDone = make(chan struct{})
	go func() {
		defer close(s.saveDone)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				// 提交完成后草稿已删除，任何落盘都会让它复活
				if s.Terminal() {
					continue
				}
				if !s.dirty.Load() {
					continue
				}
				draft := s.Form.Snapshot()
				if !draft.HasContent() {
					continue
				}
				if err := save(s); err != nil {
					log.Printf("[Autosave] 草稿落盘失败 session=%s: %v", s.ID, err)
					continue
				}
				s.dirty.Store(false)
			}
		}
	}()
}

// Stop 结束自动保存循环并等待其退出（实例销毁时调用，幂等）
// 返回后不会再有本实例发起的落盘
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.saveDone != nil {
			<-s.saveDone
		}
	})
}

// DraftKey 本实例的草稿落盘键
func (s *Session) DraftKey() string {
	return DraftKey(s.WorkflowType, s.UserID)
}

// DraftKey 按工作流类型 + 用户维度生成草稿键，同键新快照覆盖旧快照
func DraftKey(workflowType string, userID int64) string {
	return workflowType + ":" + strconv.FormatInt(userID, 10)
}
