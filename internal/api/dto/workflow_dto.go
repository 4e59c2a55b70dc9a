package dto

import (
	"jiancai_surplus_v1/internal/model"
	"jiancai_surplus_v1/internal/workflow"
)

// ==================== 请求 DTO ====================

// UpdateFieldsRequest 字段合并更新请求
// 值类型宽松，按字段名在服务端做归一化
type UpdateFieldsRequest struct {
	Fields map[string]interface{} `json:"fields" binding:"required"`
}

// EditStepRequest 预览态回到指定步骤
type EditStepRequest struct {
	Step int `json:"step" binding:"required,min=1,max=4"`
}

// SetPrimaryRequest 指定主图
type SetPrimaryRequest struct {
	MediaID string `json:"media_id" binding:"required"`
}

// ==================== 响应 DTO ====================

// WorkflowStateResponse 流程实例的完整对外视图
type WorkflowStateResponse struct {
	SessionID string               `json:"session_id"`
	Phase     string               `json:"phase"`
	Step      int                  `json:"step"`
	Record    model.SurplusDraft   `json:"record"`
	Errors    map[string]string    `json:"errors"`
	Banner    string               `json:"banner,omitempty"`
	Media     []workflow.MediaView `json:"media"`
	Restored  bool                 `json:"restored,omitempty"`
	Submitted bool                 `json:"submitted"`
}

// NewWorkflowState 从流程实例构造视图
func NewWorkflowState(sess *workflow.Session, restored bool) *WorkflowStateResponse {
	state := sess.State()
	return &WorkflowStateResponse{
		SessionID: sess.ID,
		Phase:     string(state.Phase),
		Step:      state.Step,
		Record:    sess.Form.Snapshot(),
		Errors:    sess.Form.Errors(),
		Banner:    sess.Banner(),
		Media:     sess.Media.Items(),
		Restored:  restored,
		Submitted: sess.Terminal(),
	}
}

// SubmitResponse 提交结果
type SubmitResponse struct {
	ListingID int64                  `json:"listing_id,omitempty"`
	State     *WorkflowStateResponse `json:"state"`
}

// CategoryResponse 分类条目
type CategoryResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ParentID  int64  `json:"parent_id"`
	SortOrder int    `json:"sort_order"`
}

// ListingItemResponse 已提交挂单镜像条目
type ListingItemResponse struct {
	ID             int64    `json:"id"`
	ListingID      int64    `json:"listing_id"`
	Title          string   `json:"title"`
	AskingPrice    float64  `json:"asking_price"`
	Quantity       int      `json:"quantity"`
	Unit           string   `json:"unit"`
	Status         string   `json:"status"`
	MediaURLs      []string `json:"media_urls"`
	DeliveryOption string   `json:"delivery_option"`
	CreatedAt      int64    `json:"created_at"`
}

// NewListingItem 从镜像记录构造条目
func NewListingItem(l *model.SubmittedListing) ListingItemResponse {
	return ListingItemResponse{
		ID:             l.ID,
		ListingID:      l.ListingID,
		Title:          l.Title,
		AskingPrice:    l.AskingPrice,
		Quantity:       l.Quantity,
		Unit:           l.Unit,
		Status:         l.Status,
		MediaURLs:      l.MediaURLs,
		DeliveryOption: l.DeliveryOption,
		CreatedAt:      l.CreatedAt.Unix(),
	}
}
