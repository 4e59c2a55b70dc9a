package workflow

import (
	"errors"
	"sync"
)

// ==================== 阶段常量 ====================

// Phase 工作流阶段
type Phase string

const (
	PhaseEditing    Phase = "editing"    // 正在编辑某一步骤
	PhasePreviewing Phase = "previewing" // 预览待确认
	PhaseSubmitting Phase = "submitting" // 提交进行中
	PhaseSubmitted  Phase = "submitted"  // 提交成功（终态）
	PhaseFailed     Phase = "failed"     // 提交失败（可重试）
)

// State 状态机的当前状态
type State struct {
	Phase Phase `json:"phase"`
	Step  int   `json:"step"`
}

// ==================== 迁移错误 ====================

var (
	ErrSubmitInFlight = errors.New("提交进行中，请勿重复操作")
	ErrAlreadyDone    = errors.New("该挂单已提交完成")
	ErrNotPreviewing  = errors.New("请先完成全部步骤并进入预览")
	ErrBadTransition  = errors.New("当前状态不允许该操作")
	ErrInvalidStep    = errors.New("步骤编号不合法")
)

// ==================== 状态机 ====================

// Machine 向导式流程状态机
// 只负责合法迁移的裁决，步骤校验由调用方先行完成
type Machine struct {
	mu    sync.Mutex
	phase Phase
	step  int
}

// NewMachine 初始状态 editing(1)
func NewMachine() *Machine {
	return &Machine{phase: PhaseEditing, step: StepBasicInfo}
}

// State 当前状态
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Phase: m.phase, Step: m.step}
}

// RestoreStep 恢复落盘草稿时定位到保存的步骤
func (m *Machine) RestoreStep(step int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseEditing && step >= StepBasicInfo && step <= StepCount {
		m.step = step
	}
}

// AdvanceValidated 当前步骤已通过校验后前进
// editing(k) → editing(k+1)；editing(N) → previewing
func (m *Machine) AdvanceValidated() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case PhaseEditing:
		if m.step < StepCount {
			m.step++
		} else {
			m.phase = PhasePreviewing
		}
		return nil
	case PhaseFailed:
		// 失败后重新确认进入预览
		m.phase = PhasePreviewing
		return nil
	default:
		return m.transitionErr()
	}
}

// Back 返回上一步骤
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case PhaseEditing:
		if m.step > StepBasicInfo {
			m.step--
		}
		return nil
	case PhasePreviewing, PhaseFailed:
		m.phase = PhaseEditing
		m.step = StepCount
		return nil
	default:
		return m.transitionErr()
	}
}

// EditStep 从预览显式回到某一步骤
func (m *Machine) EditStep(step int) error {
	if step < StepBasicInfo || step > StepCount {
		return ErrInvalidStep
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case PhasePreviewing, PhaseFailed, PhaseEditing:
		m.phase = PhaseEditing
		m.step = step
		return nil
	default:
		return m.transitionErr()
	}
}

// BeginSubmit 确认提交：previewing → submitting
// 已在提交中/已完成时拒绝，抑制双重提交
func (m *Machine) BeginSubmit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case PhasePreviewing, PhaseFailed:
		m.phase = PhaseSubmitting
		return nil
	case PhaseSubmitting:
		return ErrSubmitInFlight
	case PhaseSubmitted:
		return ErrAlreadyDone
	default:
		return ErrNotPreviewing
	}
}

// CompleteSubmit 提交成功，进入终态
func (m *Machine) CompleteSubmit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = PhaseSubmitted
}

// FailToStep 提交失败且定位到出错步骤：submitting → editing(step)
func (m *Machine) FailToStep(step int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if step < StepBasicInfo || step > StepCount {
		step = StepBasicInfo
	}
	m.phase = PhaseEditing
	m.step = step
}

// FailWithBanner 提交失败但无字段定位：submitting → failed（横幅提示，可重试）
func (m *Machine) FailWithBanner() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = PhaseFailed
}

// Terminal 是否已到终态
func (m *Machine) Terminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == PhaseSubmitted
}

func (m *Machine) transitionErr() error {
	switch m.phase {
	case PhaseSubmitting:
		return ErrSubmitInFlight
	case PhaseSubmitted:
		return ErrAlreadyDone
	default:
		return ErrBadTransition
	}
}
