package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jiancai_surplus_v1/internal/api/dto"
	"jiancai_surplus_v1/internal/service"
)

// CategoryController 分类参考数据控制器
type CategoryController struct {
	categoryService *service.CategoryService
}

func NewCategoryController(categoryService *service.CategoryService) *CategoryController {
	return &CategoryController{categoryService: categoryService}
}

// ListCategories 获取分类列表
// @Summary 获取主站分类（本地缓存，过期自动刷新）
// @Tags Category
// @Success 200 {object} map[string]interface{}
// @Router /api/categories [get]
func (ctrl *CategoryController) ListCategories(c *gin.Context) {
	ctx := c.Request.Context()
	categories, err := ctrl.categoryService.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询分类失败: " + err.Error(),
		})
		return
	}

	items := make([]dto.CategoryResponse, len(categories))
	for i, cat := range categories {
		items[i] = dto.CategoryResponse{
			ID:        cat.ID,
			Name:      cat.Name,
			ParentID:  cat.ParentID,
			SortOrder: cat.SortOrder,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    items,
	})
}
