package workflow

import (
	"testing"

	"jiancai_surplus_v1/internal/model"
)

// ==================== 字段写入 ====================

func TestFormStore_SetField(t *testing.T) {
	s := NewFormStore()

	s.SetField("title", "二手钢管脚手架")
	s.SetField("category_id", float64(7)) // JSON 解码后数字是 float64
	s.SetField("quantity", float64(30))
	s.SetField("asking_price", 19.9)

	d := s.Snapshot()
	if d.Title != "二手钢管脚手架" {
		t.Errorf("Title = %q", d.Title)
	}
	if d.CategoryID != 7 {
		t.Errorf("CategoryID = %d, want 7", d.CategoryID)
	}
	if d.Quantity != 30 {
		t.Errorf("Quantity = %d, want 30", d.Quantity)
	}
	if d.AskingPrice != 19.9 {
		t.Errorf("AskingPrice = %v, want 19.9", d.AskingPrice)
	}
}

// 可选字段：nil 输入保持 nil 指针，区分"未填写"
func TestFormStore_OptionalFields(t *testing.T) {
	s := NewFormStore()

	s.SetField("brand", nil)
	if d := s.Snapshot(); d.Brand != nil {
		t.Errorf("Brand 应为 nil, got %v", *d.Brand)
	}

	s.SetField("brand", "海螺")
	if d := s.Snapshot(); d.Brand == nil || *d.Brand != "海螺" {
		t.Errorf("Brand 赋值失败: %v", s.Snapshot().Brand)
	}

	s.SetField("original_price", float64(88))
	if d := s.Snapshot(); d.OriginalPrice == nil || *d.OriginalPrice != 88 {
		t.Errorf("OriginalPrice 赋值失败")
	}

	// 回填 nil 恢复未填写语义
	s.SetField("original_price", nil)
	if d := s.Snapshot(); d.OriginalPrice != nil {
		t.Errorf("OriginalPrice 应回到 nil")
	}
}

// 未知字段名静默忽略
func TestFormStore_UnknownField(t *testing.T) {
	s := NewFormStore()
	s.SetField("sku", "ABC-123")

	if d := s.Snapshot(); d != (model.SurplusDraft{}) {
		t.Errorf("未知字段不应修改记录: %+v", d)
	}
}

// ==================== 错误集联动 ====================

// 编辑字段清除该字段的错误，其余错误保留
func TestFormStore_SetFieldClearsOwnError(t *testing.T) {
	s := NewFormStore()
	s.ReplaceErrors(ValidationErrors{
		"title":        "请填写标题",
		"asking_price": "请填写要价",
	})

	s.SetField("title", "全新大理石板材")

	errs := s.Errors()
	if _, ok := errs["title"]; ok {
		t.Errorf("编辑后 title 错误应被清除: %v", errs)
	}
	if errs["asking_price"] != "请填写要价" {
		t.Errorf("未编辑字段的错误应保留: %v", errs)
	}
}

func TestFormStore_SetMany(t *testing.T) {
	s := NewFormStore()
	s.ReplaceErrors(ValidationErrors{
		"title":     "请填写标题",
		"condition": "请选择成色",
		"unit":      "请选择计量单位",
	})

	s.SetMany(map[string]interface{}{
		"title":     "库存断桥铝型材",
		"condition": model.ConditionLikeNew,
	})

	d := s.Snapshot()
	if d.Title != "库存断桥铝型材" || d.Condition != model.ConditionLikeNew {
		t.Errorf("SetMany 写入失败: %+v", d)
	}

	errs := s.Errors()
	if len(errs) != 1 || errs["unit"] == "" {
		t.Errorf("只应保留未触及字段的错误: %v", errs)
	}
}

// Errors 返回拷贝，外部修改不得影响内部状态
func TestFormStore_ErrorsIsolated(t *testing.T) {
	s := NewFormStore()
	s.ReplaceErrors(ValidationErrors{"title": "请填写标题"})

	errs := s.Errors()
	errs["title"] = "被篡改"
	errs["extra"] = "多余"

	if got := s.Errors(); got["title"] != "请填写标题" || len(got) != 1 {
		t.Errorf("内部错误集被外部修改污染: %v", got)
	}
}

func TestFormStore_MergeErrors(t *testing.T) {
	s := NewFormStore()
	s.ReplaceErrors(ValidationErrors{"title": "请填写标题"})

	s.MergeErrors(ValidationErrors{
		"title":        "标题包含违禁词",
		"asking_price": "要价超出类目限制",
	})

	errs := s.Errors()
	if errs["title"] != "标题包含违禁词" {
		t.Errorf("合并时同名字段应覆盖: %v", errs)
	}
	if errs["asking_price"] != "要价超出类目限制" {
		t.Errorf("合并应加入新字段: %v", errs)
	}
}

// ==================== 恢复 ====================

func TestFormStore_Restore(t *testing.T) {
	s := NewFormStore()
	s.SetField("title", "旧值")

	s.Restore(model.SurplusDraft{
		Title:       "恢复的标题",
		CategoryID:  3,
		AskingPrice: 50,
	})

	d := s.Snapshot()
	if d.Title != "恢复的标题" || d.CategoryID != 3 || d.AskingPrice != 50 {
		t.Errorf("Restore 失败: %+v", d)
	}
}
