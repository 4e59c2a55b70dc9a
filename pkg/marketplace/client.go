package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== 配置 ====================

// Config 主站客户端配置
type Config struct {
	BaseURL string        // 如 https://api.jiancai-mart.com
	APIKey  string        // 平台分配的应用 Key
	Timeout time.Duration // 0 则取默认 20s
	Debug   bool
}

// ==================== 客户端 ====================

// Client 主站（挂单/分类）API 客户端
// 全系统对主站的出站请求统一走这里
type Client struct {
	http    *resty.Client
	baseURL string
}

// NewClient 创建配置好超时与重试的客户端
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		// 图片上传可能比较慢，给 20s
		timeout = 20 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetDebug(cfg.Debug).
		SetHeader("User-Agent", "Jiancai-Surplus-Go/1.0")

	if cfg.APIKey != "" {
		client.SetHeader("x-api-key", cfg.APIKey)
	}

	return &Client{
		http:    client,
		baseURL: cfg.BaseURL,
	}
}

// ==================== 挂单 ====================

// CreateListing 创建尾货挂单
// token 为调用方注入的 bearer 凭证；每次用户确认提交只应调用一次
func (c *Client) CreateListing(ctx context.Context, token string, req *CreateListingRequest) (*CreateListingResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.baseURL + "/v1/surplus/listings")
	if err != nil {
		return nil, fmt.Errorf("请求主站失败: %w", err)
	}

	if resp.IsError() {
		return nil, parseAPIError(resp)
	}

	var result CreateListingResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析主站响应失败: %w", err)
	}
	if result.ListingID <= 0 {
		return nil, fmt.Errorf("主站响应缺少 listing_id")
	}

	return &result, nil
}

// UploadListingImage 上传挂单图片（multipart）
// rank 为图片顺序（从 1 开始），primary 标记主图
func (c *Client) UploadListingImage(
	ctx context.Context,
	token string,
	listingID int64,
	filename string,
	data []byte,
	rank int,
	primary bool,
) (*ListingImageResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetFileReader("image", filename, bytes.NewReader(data)).
		SetFormData(map[string]string{
			"rank":    fmt.Sprintf("%d", rank),
			"primary": fmt.Sprintf("%t", primary),
		}).
		Post(fmt.Sprintf("%s/v1/surplus/listings/%d/images", c.baseURL, listingID))
	if err != nil {
		return nil, fmt.Errorf("上传图片失败: %w", err)
	}

	if resp.IsError() {
		return nil, parseAPIError(resp)
	}

	var result ListingImageResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析图片响应失败: %w", err)
	}

	return &result, nil
}

// ==================== 分类 ====================

// ListCategories 拉取分类参考数据
// 空列表是合法结果（表示暂无可用分类），不视为错误
func (c *Client) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.baseURL + "/v1/surplus/categories")
	if err != nil {
		return nil, fmt.Errorf("拉取分类失败: %w", err)
	}

	if resp.IsError() {
		return nil, parseAPIError(resp)
	}

	var body categoryListBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("解析分类响应失败: %w", err)
	}

	return body.Categories, nil
}

// ==================== 错误解析 ====================

// parseAPIError 将主站错误响应解码为 APIError
// 响应体解析不出来时退化为非结构化错误，保留状态码与原文
func parseAPIError(resp *resty.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Message:    "主站返回错误",
	}

	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		if body.Message != "" {
			apiErr.Message = body.Message
		}
		if len(body.Errors) > 0 {
			apiErr.FieldErrors = body.Errors
		}
	}

	return apiErr
}
