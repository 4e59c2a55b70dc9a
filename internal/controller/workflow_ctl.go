package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jiancai_surplus_v1/internal/api/dto"
	"jiancai_surplus_v1/internal/middleware"
	"jiancai_surplus_v1/internal/service"
	"jiancai_surplus_v1/internal/workflow"
)

// ==================== 控制器 ====================

// WorkflowController 挂单提交流程控制器
type WorkflowController struct {
	workflowService *service.WorkflowService
}

func NewWorkflowController(workflowService *service.WorkflowService) *WorkflowController {
	return &WorkflowController{workflowService: workflowService}
}

// ==================== API 方法 ====================

// OpenWorkflow 打开提交流程
// @Summary 打开（或复用）当前用户的挂单提交流程，自动恢复落盘草稿
// @Tags Workflow
// @Produce json
// @Success 200 {object} dto.WorkflowStateResponse
// @Router /api/workflows [post]
func (ctrl *WorkflowController) OpenWorkflow(c *gin.Context) {
	userID := middleware.GetUserID(c)
	token := middleware.GetRawToken(c)

	ctx := c.Request.Context()
	sess, restored, err := ctrl.workflowService.Open(ctx, userID, token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "打开流程失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewWorkflowState(sess, restored),
	})
}

// GetWorkflow 获取流程状态
// @Summary 获取流程实例的当前状态
// @Tags Workflow
// @Param session_id path string true "流程ID"
// @Success 200 {object} dto.WorkflowStateResponse
// @Router /api/workflows/{session_id} [get]
func (ctrl *WorkflowController) GetWorkflow(c *gin.Context) {
	sess, ok := ctrl.getSession(c)
	if !ok {
		return
	}
	sess.Touch()

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewWorkflowState(sess, false),
	})
}

// UpdateFields 合并字段更新
// @Summary 局部更新表单字段，字段编辑会清除其校验错误
// @Tags Workflow
// @Accept json
// @Param session_id path string true "流程ID"
// @Param body body dto.UpdateFieldsRequest true "字段集合"
// @Success 200 {object} dto.WorkflowStateResponse
// @Router /api/workflows/{session_id}/fields [patch]
func (ctrl *WorkflowController) UpdateFields(c *gin.Context) {
	var req dto.UpdateFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	sess, ok := ctrl.getSession(c)
	if !ok {
		return
	}
	sess.UpdateFields(req.Fields)

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewWorkflowState(sess, false),
	})
}

// Advance 校验当前步骤并前进
// @Summary 校验当前步骤，通过则进入下一步或预览
// @Tags Workflow
// @Param session_id path string true "流程ID"
// @Success 200 {object} dto.WorkflowStateResponse
// @Router /api/workflows/{session_id}/advance [post]
func (ctrl *WorkflowController) Advance(c *gin.Context) {
	sess, ok := ctrl.getSession(c)
	if !ok {
		return
	}

	if _, err := sess.Advance(); err != nil {
		ctrl.transitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewWorkflowState(sess, false),
	})
}

// Back 返回上一步骤
// @Summary 回到上一步骤（不校验，已填内容保留）
// @Tags Workflow
// @Param session_id path string true "流程ID"
// @Success 200 {object} dto.WorkflowStateResponse
// @Router /api/workflows/{session_id}/back [post]
func (ctrl *WorkflowController) Back(c *gin.Context) {
	sess, ok := ctrl.getSession(c)
	if !ok {
		return
	}

	if err := sess.Back(); err != nil {
		ctrl.transitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewWorkflowState(sess, false),
	})
}

// EditStep 从预览回到指定步骤
// @Summary 从预览态跳回指定步骤修改
// @Tags Workflow
// @Accept json
// @Param session_id path string true "流程ID"
// @Param body body dto.EditStepRequest true "目标步骤"
// @Success 200 {object} dto.WorkflowStateResponse
// @Router /api/workflows/{session_id}/edit [post]
func (ctrl *WorkflowController) EditStep(c *gin.Context) {
	var req dto.EditStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	sess, ok := ctrl.getSession(c)
	if !ok {
		return
	}

	if err := sess.EditStep(req.Step); err != nil {
		ctrl.transitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewWorkflowState(sess, false),
	})
}

// UploadMedia 批量暂存图片
// @Summary 批量上传图片到暂存区（multipart，字段名 images）
// @Tags Workflow
// @Accept multipart/form-data
// @Param session_id path string true "流程ID"
// @Success 200 {object} dto.WorkflowStateResponse
// @Router /api/workflows/{session_id}/media [post]
func (ctrl *WorkflowController) UploadMedia(c *gin.Context) {
	sess, ok := ctrl.getSession(c)
	if !ok {
		return
	}

	limitKey := middleware.UserActionKey(middleware.GetUserID(c), middleware.ActionUpload)
	if result := middleware.GetLimiter().Check(limitKey, middleware.GetInterval(middleware.ActionUpload)); !result.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":    429,
			"message": "操作过于频繁，请稍后再试",
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	headers := form.File["images"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "未选择图片",
		})
		return
	}

	files := make([]workflow.IncomingFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "读取图片失败: " + err.Error(),
			})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "读取图片失败: " + err.Error(),
			})
			return
		}
		files = append(files, workflow.IncomingFile{Filename: h.Filename, Data: data})
	}

	// AddFiles 返回的 error 是用户级拒收说明，状态仍返回最新集合
	rejectMsg := ""
	if err := sess.Media.AddFiles(files); err != nil {
		rejectMsg = err.Error()
	}

	resp := gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewWorkflowState(sess, false),
	}
	if rejectMsg != "" {
		resp["code"] = 422
		resp["message"] = rejectMsg
	}
	c.JSON(http.StatusOK, resp)
}

// RemoveMedia 删除暂存图片
// @Summary 删除暂存图片，主图被删时首张接任
// @Tags Workflow
// @Param session_id path string true "流程ID"
// @Param media_id path string true "图片ID"
// @Success 200 {object} dto.WorkflowStateResponse
// @Router /api/workflows/{session_id}/media/{media_id} [delete]
func (ctrl *WorkflowController) RemoveMedia(c *gin.Context) {
	sess, ok := ctrl.getSession(c)
	if !ok {
		return
	}

	if !sess.Media.Remove(c.Param("media_id")) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "图片不存在",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewWorkflowState(sess, false),
	})
}

// SetPrimaryMedia 指定主图
// @Summary 指定暂存图片为主图
// @Tags Workflow
// @Param session_id path string true "流程ID"
// @Param media_id path string true "图片ID"
// @Success 200 {object} dto.WorkflowStateResponse
// @Router /api/workflows/{session_id}/media/{media_id}/primary [post]
func (ctrl *WorkflowController) SetPrimaryMedia(c *gin.Context) {
	sess, ok := ctrl.getSession(c)
	if !ok {
		return
	}

	if !sess.Media.SetPrimary(c.Param("media_id")) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "图片不存在",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.NewWorkflowState(sess, false),
	})
}

// Submit 确认提交
// @Summary 复核全部步骤后提交到主站
// @Tags Workflow
// @Param session_id path string true "流程ID"
// @Success 200 {object} dto.SubmitResponse
// @Router /api/workflows/{session_id}/submit [post]
func (ctrl *WorkflowController) Submit(c *gin.Context) {
	sess, ok := ctrl.getSession(c)
	if !ok {
		return
	}

	limitKey := middleware.UserActionKey(middleware.GetUserID(c), middleware.ActionSubmit)
	if lr := middleware.GetLimiter().Check(limitKey, middleware.GetInterval(middleware.ActionSubmit)); !lr.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":    429,
			"message": "提交过于频繁，请稍后再试",
		})
		return
	}

	ctx := c.Request.Context()
	result, err := ctrl.workflowService.Submit(ctx, sess.ID, middleware.GetUserID(c))
	if err != nil {
		ctrl.transitionError(c, err)
		return
	}

	resp := &dto.SubmitResponse{
		ListingID: result.ListingID,
		State:     dto.NewWorkflowState(sess, false),
	}

	if result.ListingID > 0 {
		c.JSON(http.StatusOK, gin.H{
			"code":    0,
			"message": "提交成功",
			"data":    resp,
		})
		return
	}

	message := result.Banner
	if message == "" {
		message = "请修正表单后重试"
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    422,
		"message": message,
		"data":    resp,
	})
}

// CancelWorkflow 放弃流程
// @Summary 放弃流程，删除落盘草稿并清理暂存图片
// @Tags Workflow
// @Param session_id path string true "流程ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/workflows/{session_id} [delete]
func (ctrl *WorkflowController) CancelWorkflow(c *gin.Context) {
	userID := middleware.GetUserID(c)

	ctx := c.Request.Context()
	if err := ctrl.workflowService.Cancel(ctx, c.Param("session_id"), userID); err != nil {
		ctrl.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "已放弃该流程",
	})
}

// ListListings 查询已提交挂单
// @Summary 分页查询当前用户已提交的挂单
// @Tags Listing
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param status query string false "状态筛选"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings [get]
func (ctrl *WorkflowController) ListListings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := c.Query("status")

	userID := middleware.GetUserID(c)

	ctx := c.Request.Context()
	listings, total, err := ctrl.workflowService.ListSubmitted(ctx, userID, status, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询失败: " + err.Error(),
		})
		return
	}

	items := make([]dto.ListingItemResponse, len(listings))
	for i := range listings {
		items[i] = dto.NewListingItem(&listings[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"code":     0,
		"message":  "success",
		"data":     items,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// ==================== 内部辅助 ====================

// getSession 解析路径中的流程ID并校验归属，失败时已写响应
func (ctrl *WorkflowController) getSession(c *gin.Context) (*workflow.Session, bool) {
	sess, err := ctrl.workflowService.Get(c.Param("session_id"), middleware.GetUserID(c))
	if err != nil {
		ctrl.sessionError(c, err)
		return nil, false
	}
	return sess, true
}

func (ctrl *WorkflowController) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
		})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"code":    403,
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
	}
}

func (ctrl *WorkflowController) transitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrSubmitInFlight), errors.Is(err, workflow.ErrAlreadyDone):
		c.JSON(http.StatusConflict, gin.H{
			"code":    409,
			"message": err.Error(),
		})
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrForbidden):
		ctrl.sessionError(c, err)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
	}
}
