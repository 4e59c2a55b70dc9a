package workflow

import (
	"sync"

	"jiancai_surplus_v1/internal/model"
)

// ==================== 表单状态存储 ====================

// FormStore 在建记录的唯一事实来源
// 只负责保管值与错误集，不做任何清洗（清洗属于校验器/提交层）
type FormStore struct {
	mu     sync.RWMutex
	draft  model.SurplusDraft
	errors ValidationErrors
}

// NewFormStore 创建空表单存储
func NewFormStore() *FormStore {
	return &FormStore{errors: ValidationErrors{}}
}

// SetField 无条件覆盖字段值，并清除该字段已有的校验错误
func (s *FormStore) SetField(name string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyField(name, value)
	delete(s.errors, name)
}

// SetMany 合并部分更新（恢复落盘草稿、批量编辑时使用）
func (s *FormStore) SetMany(partial map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, value := range partial {
		s.applyField(name, value)
		delete(s.errors, name)
	}
}

// Restore 用完整记录整体替换当前值
func (s *FormStore) Restore(d model.SurplusDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
}

// Snapshot 当前记录的值拷贝
func (s *FormStore) Snapshot() model.SurplusDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// ==================== 错误集操作 ====================

// Errors 当前错误集的拷贝
func (s *FormStore) Errors() ValidationErrors {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors.Clone()
}

// ReplaceErrors 整体替换错误集（分步校验后的整批重算）
func (s *FormStore) ReplaceErrors(errs ValidationErrors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = errs.Clone()
}

// MergeErrors 合并错误（远端字段级校验失败时使用）
func (s *FormStore) MergeErrors(errs ValidationErrors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors.Merge(errs)
}

// ==================== 字段赋值 ====================

// applyField 按字段名赋值，未知字段名静默忽略
// JSON 解码后的数字统一为 float64，这里负责转回目标类型
func (s *FormStore) applyField(name string, value interface{}) {
	switch name {
	case "category_id":
		s.draft.CategoryID = toInt64(value)
	case "title":
		s.draft.Title = toString(value)
	case "description":
		s.draft.Description = toString(value)
	case "condition":
		s.draft.Condition = toString(value)
	case "brand":
		s.draft.Brand = toStringPtr(value)
	case "price_type":
		s.draft.PriceType = toString(value)
	case "asking_price":
		s.draft.AskingPrice = toFloat64(value)
	case "original_price":
		s.draft.OriginalPrice = toFloat64Ptr(value)
	case "quantity":
		s.draft.Quantity = int(toInt64(value))
	case "unit":
		s.draft.Unit = toString(value)
	case "pickup_location":
		s.draft.PickupLocation = toString(value)
	case "delivery_option":
		s.draft.DeliveryOption = toString(value)
	case "delivery_notes":
		s.draft.DeliveryNotes = toStringPtr(value)
	}
}

// ==================== 类型转换 ====================

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toStringPtr nil 输入得到 nil 指针，保留"未填写"语义
func toStringPtr(v interface{}) *string {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func toFloat64Ptr(v interface{}) *float64 {
	if v == nil {
		return nil
	}
	f := toFloat64(v)
	return &f
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}
