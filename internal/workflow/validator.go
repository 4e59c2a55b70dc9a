package workflow

import (
	"fmt"
	"unicode/utf8"

	"jiancai_surplus_v1/internal/model"
)

// ==================== 步骤常量 ====================

const (
	StepBasicInfo = 1 // 基本信息
	StepMedia     = 2 // 图片
	StepPricing   = 3 // 价格
	StepLogistics = 4 // 物流

	StepCount = 4
)

// 文本长度边界（两端均含）
const (
	TitleMinLen    = 3
	TitleMaxLen    = 140
	DescMinLen     = 20
	DescMaxLen     = 2000
	LocationMaxLen = 255
)

// ==================== 校验错误集 ====================

// ValidationErrors 字段名 → 错误文案
// 字段存在键当且仅当该字段当前违反规则
type ValidationErrors map[string]string

// Empty 是否无错误
func (e ValidationErrors) Empty() bool {
	return len(e) == 0
}

// Clone 拷贝
func (e ValidationErrors) Clone() ValidationErrors {
	out := make(ValidationErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Merge 合并另一组错误（同名字段覆盖）
func (e ValidationErrors) Merge(other ValidationErrors) {
	for k, v := range other {
		e[k] = v
	}
}

// ==================== 字段归属 ====================

// fieldStep 字段 → 所属步骤
// 远端返回字段级错误时据此定位应跳转的步骤
var fieldStep = map[string]int{
	"category_id": StepBasicInfo,
	"title":       StepBasicInfo,
	"description": StepBasicInfo,
	"condition":   StepBasicInfo,
	"brand":       StepBasicInfo,

	"media": StepMedia,

	"price_type":     StepPricing,
	"asking_price":   StepPricing,
	"original_price": StepPricing,

	"quantity":        StepLogistics,
	"unit":            StepLogistics,
	"pickup_location": StepLogistics,
	"delivery_option": StepLogistics,
	"delivery_notes":  StepLogistics,
}

// StepForFields 返回一组字段名中最靠前的所属步骤，未知字段忽略
// 全部未知时返回 0
func StepForFields(errs ValidationErrors) int {
	first := 0
	for name := range errs {
		step, ok := fieldStep[name]
		if !ok {
			continue
		}
		if first == 0 || step < first {
			first = step
		}
	}
	return first
}

// ==================== 分步校验 ====================

// ValidateStep 校验指定步骤，只检查该步骤相关字段
// 纯函数：同一输入必得同一输出，无副作用
func ValidateStep(step int, d model.SurplusDraft, mediaCount int) ValidationErrors {
	errs := ValidationErrors{}

	switch step {
	case StepBasicInfo:
		validateBasicInfo(d, errs)
	case StepMedia:
		validateMedia(mediaCount, errs)
	case StepPricing:
		validatePricing(d, errs)
	case StepLogistics:
		validateLogistics(d, errs)
	}

	return errs
}

// ValidateAll 按序校验全部步骤
// 返回首个未通过步骤的错误集与步骤号；全部通过时返回空集与 0
func ValidateAll(d model.SurplusDraft, mediaCount int) (ValidationErrors, int) {
	for step := StepBasicInfo; step <= StepCount; step++ {
		if errs := ValidateStep(step, d, mediaCount); !errs.Empty() {
			return errs, step
		}
	}
	return ValidationErrors{}, 0
}

// ==================== 各步骤规则 ====================

func validateBasicInfo(d model.SurplusDraft, errs ValidationErrors) {
	if d.CategoryID <= 0 {
		errs["category_id"] = "请选择分类"
	}

	switch titleLen := utf8.RuneCountInString(d.Title); {
	case d.Title == "":
		errs["title"] = "请填写标题"
	case titleLen < TitleMinLen || titleLen > TitleMaxLen:
		errs["title"] = fmt.Sprintf("标题长度需在 %d-%d 个字符之间", TitleMinLen, TitleMaxLen)
	}

	switch descLen := utf8.RuneCountInString(d.Description); {
	case d.Description == "":
		errs["description"] = "请填写描述"
	case descLen < DescMinLen || descLen > DescMaxLen:
		errs["description"] = fmt.Sprintf("描述长度需在 %d-%d 个字符之间", DescMinLen, DescMaxLen)
	}

	switch {
	case d.Condition == "":
		errs["condition"] = "请选择成色"
	case !model.ValidConditions[d.Condition]:
		errs["condition"] = "成色取值不合法"
	}

	// Brand 为可选字段，无规则
}

func validateMedia(mediaCount int, errs ValidationErrors) {
	if mediaCount < 1 {
		errs["media"] = "请至少上传一张图片"
	}
}

func validatePricing(d model.SurplusDraft, errs ValidationErrors) {
	switch {
	case d.PriceType == "":
		errs["price_type"] = "请选择定价方式"
	case !model.ValidPriceTypes[d.PriceType]:
		errs["price_type"] = "定价方式取值不合法"
	}

	// 区分"未填写"与"填写不合法"
	switch {
	case d.AskingPrice == 0:
		errs["asking_price"] = "请填写要价"
	case d.AskingPrice < 0:
		errs["asking_price"] = "要价必须大于 0"
	}

	// 跨字段规则：原价存在时必须不低于要价，错误记在 original_price 上
	if d.OriginalPrice != nil {
		switch {
		case *d.OriginalPrice <= 0:
			errs["original_price"] = "原价必须大于 0"
		case d.AskingPrice > 0 && *d.OriginalPrice < d.AskingPrice:
			errs["original_price"] = "原价不能低于要价"
		}
	}
}

func validateLogistics(d model.SurplusDraft, errs ValidationErrors) {
	switch {
	case d.Quantity == 0:
		errs["quantity"] = "请填写数量"
	case d.Quantity < 0:
		errs["quantity"] = "数量必须大于 0"
	}

	switch {
	case d.Unit == "":
		errs["unit"] = "请选择计量单位"
	case !model.ValidUnits[d.Unit]:
		errs["unit"] = "计量单位取值不合法"
	}

	switch locLen := utf8.RuneCountInString(d.PickupLocation); {
	case d.PickupLocation == "":
		errs["pickup_location"] = "请填写自提地址"
	case locLen > LocationMaxLen:
		errs["pickup_location"] = fmt.Sprintf("自提地址不能超过 %d 个字符", LocationMaxLen)
	}

	switch {
	case d.DeliveryOption == "":
		errs["delivery_option"] = "请选择交付方式"
	case !model.ValidDeliveryOptions[d.DeliveryOption]:
		errs["delivery_option"] = "交付方式取值不合法"
	}

	// DeliveryNotes 为可选字段，无规则
}
