package workflow

import (
	"errors"
	"testing"
)

// advanceTo 推进到指定步骤通过后的状态
func advanceTo(t *testing.T, m *Machine, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		if err := m.AdvanceValidated(); err != nil {
			t.Fatalf("第 %d 次前进失败: %v", i+1, err)
		}
	}
}

// ==================== 基本迁移 ====================

func TestMachine_InitialState(t *testing.T) {
	m := NewMachine()
	state := m.State()
	if state.Phase != PhaseEditing || state.Step != StepBasicInfo {
		t.Errorf("初始状态应为 editing(1), got %+v", state)
	}
}

func TestMachine_AdvanceThroughSteps(t *testing.T) {
	m := NewMachine()

	for want := 2; want <= StepCount; want++ {
		advanceTo(t, m, 1)
		if state := m.State(); state.Phase != PhaseEditing || state.Step != want {
			t.Fatalf("应到 editing(%d), got %+v", want, state)
		}
	}

	// 最后一步通过后进入预览
	advanceTo(t, m, 1)
	if state := m.State(); state.Phase != PhasePreviewing {
		t.Errorf("应进入预览, got %+v", state)
	}
}

func TestMachine_Back(t *testing.T) {
	m := NewMachine()

	// 第一步继续后退原地不动
	if err := m.Back(); err != nil {
		t.Fatalf("Back 失败: %v", err)
	}
	if state := m.State(); state.Step != StepBasicInfo {
		t.Errorf("第一步后退应原地不动, got %+v", state)
	}

	advanceTo(t, m, 2)
	if err := m.Back(); err != nil {
		t.Fatalf("Back 失败: %v", err)
	}
	if state := m.State(); state.Step != 2 {
		t.Errorf("应回到第 2 步, got %+v", state)
	}

	// 预览态后退回到最后一步
	advanceTo(t, m, 3)
	if state := m.State(); state.Phase != PhasePreviewing {
		t.Fatalf("应在预览, got %+v", state)
	}
	m.Back()
	if state := m.State(); state.Phase != PhaseEditing || state.Step != StepCount {
		t.Errorf("预览后退应回到 editing(%d), got %+v", StepCount, state)
	}
}

func TestMachine_EditStep(t *testing.T) {
	m := NewMachine()
	advanceTo(t, m, StepCount) // 到预览

	if err := m.EditStep(2); err != nil {
		t.Fatalf("EditStep 失败: %v", err)
	}
	if state := m.State(); state.Phase != PhaseEditing || state.Step != 2 {
		t.Errorf("应回到 editing(2), got %+v", state)
	}

	if err := m.EditStep(0); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("步骤 0 应报 ErrInvalidStep, got %v", err)
	}
	if err := m.EditStep(StepCount + 1); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("越界步骤应报 ErrInvalidStep, got %v", err)
	}
}

// ==================== 提交迁移 ====================

func TestMachine_SubmitLifecycle(t *testing.T) {
	m := NewMachine()

	// 未到预览不能提交
	if err := m.BeginSubmit(); !errors.Is(err, ErrNotPreviewing) {
		t.Errorf("编辑态提交应报 ErrNotPreviewing, got %v", err)
	}

	advanceTo(t, m, StepCount)
	if err := m.BeginSubmit(); err != nil {
		t.Fatalf("预览态提交失败: %v", err)
	}
	if state := m.State(); state.Phase != PhaseSubmitting {
		t.Errorf("应进入 submitting, got %+v", state)
	}

	// 提交中重复提交被拒
	if err := m.BeginSubmit(); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("重复提交应报 ErrSubmitInFlight, got %v", err)
	}

	m.CompleteSubmit()
	if !m.Terminal() {
		t.Error("提交成功后应为终态")
	}

	// 终态一切操作被拒
	if err := m.BeginSubmit(); !errors.Is(err, ErrAlreadyDone) {
		t.Errorf("终态重提应报 ErrAlreadyDone, got %v", err)
	}
	if err := m.Back(); !errors.Is(err, ErrAlreadyDone) {
		t.Errorf("终态 Back 应报 ErrAlreadyDone, got %v", err)
	}
	if err := m.EditStep(1); !errors.Is(err, ErrAlreadyDone) {
		t.Errorf("终态 EditStep 应报 ErrAlreadyDone, got %v", err)
	}
}

func TestMachine_FailToStep(t *testing.T) {
	m := NewMachine()
	advanceTo(t, m, StepCount)
	m.BeginSubmit()

	m.FailToStep(StepPricing)
	if state := m.State(); state.Phase != PhaseEditing || state.Step != StepPricing {
		t.Errorf("失败应回到 editing(3), got %+v", state)
	}
}

func TestMachine_FailToStep_OutOfRange(t *testing.T) {
	m := NewMachine()
	advanceTo(t, m, StepCount)
	m.BeginSubmit()

	m.FailToStep(99)
	if state := m.State(); state.Step != StepBasicInfo {
		t.Errorf("越界步骤应回退到第一步, got %+v", state)
	}
}

func TestMachine_FailWithBannerAllowsRetry(t *testing.T) {
	m := NewMachine()
	advanceTo(t, m, StepCount)
	m.BeginSubmit()

	m.FailWithBanner()
	if state := m.State(); state.Phase != PhaseFailed {
		t.Errorf("应进入 failed, got %+v", state)
	}

	// failed 态允许直接重试提交
	if err := m.BeginSubmit(); err != nil {
		t.Errorf("失败后重试应被允许: %v", err)
	}
}

func TestMachine_FailedStateNavigation(t *testing.T) {
	m := NewMachine()
	advanceTo(t, m, StepCount)
	m.BeginSubmit()
	m.FailWithBanner()

	// failed 态可以回去改表单
	if err := m.Back(); err != nil {
		t.Fatalf("failed 态 Back 失败: %v", err)
	}
	if state := m.State(); state.Phase != PhaseEditing || state.Step != StepCount {
		t.Errorf("failed 后退应回到 editing(%d), got %+v", StepCount, state)
	}
}

// ==================== 恢复 ====================

func TestMachine_RestoreStep(t *testing.T) {
	m := NewMachine()
	m.RestoreStep(3)
	if state := m.State(); state.Step != 3 {
		t.Errorf("应恢复到第 3 步, got %+v", state)
	}

	// 越界值忽略
	m.RestoreStep(0)
	m.RestoreStep(99)
	if state := m.State(); state.Step != 3 {
		t.Errorf("越界恢复应被忽略, got %+v", state)
	}
}
