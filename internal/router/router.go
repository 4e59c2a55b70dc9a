package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jiancai_surplus_v1/internal/controller"
	"jiancai_surplus_v1/internal/middleware"
)

// SetupRouter 注册所有路由
func SetupRouter(r *gin.Engine,
	workflowCtl *controller.WorkflowController,
	categoryCtl *controller.CategoryController) {

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 分类参考数据为公开只读接口，不要求登录
	r.GET("/api/categories", categoryCtl.ListCategories)

	// 其余 API 统一走 JWT 鉴权
	api := r.Group("/api")
	api.Use(middleware.JWTAuth())
	{
		// workflow 提交流程
		workflows := api.Group("/workflows")
		{
			// POST /api/workflows
			workflows.POST("", workflowCtl.OpenWorkflow)
			workflows.GET("/:session_id", workflowCtl.GetWorkflow)
			workflows.DELETE("/:session_id", workflowCtl.CancelWorkflow)

			// 表单与步骤
			workflows.PATCH("/:session_id/fields", workflowCtl.UpdateFields)
			workflows.POST("/:session_id/advance", workflowCtl.Advance)
			workflows.POST("/:session_id/back", workflowCtl.Back)
			workflows.POST("/:session_id/edit", workflowCtl.EditStep)

			// 图片暂存
			workflows.POST("/:session_id/media", workflowCtl.UploadMedia)
			workflows.DELETE("/:session_id/media/:media_id", workflowCtl.RemoveMedia)
			workflows.POST("/:session_id/media/:media_id/primary", workflowCtl.SetPrimaryMedia)

			// 提交
			workflows.POST("/:session_id/submit", workflowCtl.Submit)
		}

		// listing 已提交挂单
		api.GET("/listings", workflowCtl.ListListings)
	}
}
