package marketplace

import "fmt"

// ==========================================
// DTO: 与主站 API 交互的请求/响应结构
// 响应在边界处显式解码，坏数据立即报错而不是继续向上传递
// ==========================================

// CreateListingRequest 创建尾货挂单请求
// 可选且未填写的字段使用指针 + omitempty，整体不出现在 JSON 中，
// 让接收端能区分"未提供"与"提供了空值"
type CreateListingRequest struct {
	CategoryID  int64   `json:"category_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	Brand       *string `json:"brand,omitempty"`

	PriceType     string   `json:"price_type"`
	AskingPrice   float64  `json:"asking_price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`

	Quantity       int     `json:"quantity"`
	Unit           string  `json:"unit"`
	PickupLocation string  `json:"pickup_location"`
	DeliveryOption string  `json:"delivery_option"`
	DeliveryNotes  *string `json:"delivery_notes,omitempty"`
}

// CreateListingResponse 创建成功响应
type CreateListingResponse struct {
	ListingID int64  `json:"listing_id"`
	Status    string `json:"status"`
}

// ListingImageResponse 图片上传成功响应
type ListingImageResponse struct {
	ImageID int64  `json:"image_id"`
	URL     string `json:"url"`
}

// CategoryDTO 分类条目
type CategoryDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ParentID  int64  `json:"parent_id"`
	SortOrder int    `json:"sort_order"`
}

// categoryListBody 分类列表响应体
type categoryListBody struct {
	Categories []CategoryDTO `json:"categories"`
}

// errorBody 主站错误响应体
// errors 存在时为字段级校验失败，否则为非结构化错误
type errorBody struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ==========================================
// 错误类型
// ==========================================

// APIError 主站返回的业务错误
// FieldErrors 非空时表示字段级校验失败，可并入本地错误集
type APIError struct {
	StatusCode  int
	Message     string
	FieldErrors map[string]string
}

func (e *APIError) Error() string {
	if len(e.FieldErrors) > 0 {
		return fmt.Sprintf("主站校验失败 [%d]: %s (%d 个字段)", e.StatusCode, e.Message, len(e.FieldErrors))
	}
	return fmt.Sprintf("主站请求失败 [%d]: %s", e.StatusCode, e.Message)
}

// HasFieldErrors 是否携带字段级错误
func (e *APIError) HasFieldErrors() bool {
	return len(e.FieldErrors) > 0
}
