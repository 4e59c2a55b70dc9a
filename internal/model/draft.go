package model

// ==================== 枚举常量 ====================

const (
	// 成色
	ConditionBrandNew = "brand_new" // 全新
	ConditionLikeNew  = "like_new"  // 几乎全新
	ConditionGood     = "good"      // 良好
	ConditionFair     = "fair"      // 一般
	ConditionSalvage  = "salvage"   // 拆旧料

	// 定价方式
	PriceTypeFixed      = "fixed"      // 一口价
	PriceTypeNegotiable = "negotiable" // 可议价

	// 计量单位
	UnitPiece  = "piece"  // 件
	UnitBox    = "box"    // 箱
	UnitPallet = "pallet" // 托
	UnitSqm    = "sqm"    // 平方米
	UnitMeter  = "meter"  // 米
	UnitKg     = "kg"     // 千克
	UnitTon    = "ton"    // 吨

	// 交付方式
	DeliveryPickupOnly = "pickup_only"    // 仅自提
	DeliveryLocal      = "local_delivery" // 同城配送
	DeliveryFreight    = "freight"        // 物流托运
)

// 封闭枚举集合，校验器据此判定字段取值合法性
var (
	ValidConditions = map[string]bool{
		ConditionBrandNew: true,
		ConditionLikeNew:  true,
		ConditionGood:     true,
		ConditionFair:     true,
		ConditionSalvage:  true,
	}

	ValidPriceTypes = map[string]bool{
		PriceTypeFixed:      true,
		PriceTypeNegotiable: true,
	}

	ValidUnits = map[string]bool{
		UnitPiece:  true,
		UnitBox:    true,
		UnitPallet: true,
		UnitSqm:    true,
		UnitMeter:  true,
		UnitKg:     true,
		UnitTon:    true,
	}

	ValidDeliveryOptions = map[string]bool{
		DeliveryPickupOnly: true,
		DeliveryLocal:      true,
		DeliveryFreight:    true,
	}
)

// ==================== 草稿记录 ====================

// SurplusDraft 尾货挂单草稿（表单记录）
// 可选字段使用指针类型，区分"未填写"与"填写为空"
type SurplusDraft struct {
	// 基本信息
	CategoryID  int64   `json:"category_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	Brand       *string `json:"brand,omitempty"`

	// 价格
	PriceType     string   `json:"price_type"`
	AskingPrice   float64  `json:"asking_price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`

	// 物流
	Quantity       int     `json:"quantity"`
	Unit           string  `json:"unit"`
	PickupLocation string  `json:"pickup_location"`
	DeliveryOption string  `json:"delivery_option"`
	DeliveryNotes  *string `json:"delivery_notes,omitempty"`
}

// HasContent 判断草稿是否有可识别内容（决定是否值得落盘）
func (d *SurplusDraft) HasContent() bool {
	return d.Title != "" ||
		d.Description != "" ||
		d.CategoryID > 0 ||
		d.AskingPrice > 0 ||
		d.PickupLocation != ""
}

// ==================== 持久化草稿 ====================

// MediaRef 暂存图片的字符串引用（不含二进制数据）
type MediaRef struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	StorageURL  string `json:"storage_url,omitempty"`
	Primary     bool   `json:"primary"`
}

// PersistedDraft 落盘快照：草稿记录 + 暂存图片引用 + 所在步骤
type PersistedDraft struct {
	Record  SurplusDraft `json:"record"`
	Media   []MediaRef   `json:"media,omitempty"`
	Step    int          `json:"step"`
	SavedAt int64        `json:"saved_at"`
}
