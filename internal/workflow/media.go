package workflow

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jiancai_surplus_v1/internal/model"
)

// ==================== 限制常量 ====================

const (
	MaxMediaCount = 10              // 单个挂单最多图片数
	MaxMediaSize  = 5 * 1024 * 1024 // 单张图片字节上限
)

// 允许的图片类型
var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// ==================== 类型定义 ====================

// IncomingFile 待暂存的候选文件
type IncomingFile struct {
	Filename string
	Data     []byte
}

// StagedMedia 一张已暂存的图片
// Preview 与 StorageURL 由后台协程异步填充
type StagedMedia struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	Primary     bool
	Preview     string // data URL 预览
	StorageURL  string // 持久化存储地址
	data        []byte
}

// MediaView 暂存图片的对外视图
type MediaView struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
	Primary      bool   `json:"primary"`
	Preview      string `json:"preview,omitempty"`
	PreviewReady bool   `json:"preview_ready"`
	StorageURL   string `json:"storage_url,omitempty"`
}

// UploadFile 提交阶段需要上送的图片数据
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
	StorageURL  string
	Primary     bool
}

// BlobStore 暂存图片的持久化接口
type BlobStore interface {
	Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// ==================== MediaStage ====================

// MediaStage 管理提交前的有序图片集合
type MediaStage struct {
	mu        sync.Mutex
	sessionID string
	items     []*StagedMedia
	blobs     BlobStore // 可为 nil（纯内存模式）
	onChange  func()    // 集合变化回调（标脏）
}

// NewMediaStage 创建图片暂存区
func NewMediaStage(sessionID string, blobs BlobStore, onChange func()) *MediaStage {
	return &MediaStage{
		sessionID: sessionID,
		blobs:     blobs,
		onChange:  onChange,
	}
}

// AddFiles 追加一批候选文件
// 超出数量上限时整批拒绝；类型/大小不合规的文件单独拒绝，不影响本批其余文件
// 返回的 error 是面向媒体字段的用户级错误，不是故障
func (m *MediaStage) AddFiles(files []IncomingFile) error {
	if len(files) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 整批数量检查先行：宁可全拒，不部分收取
	if len(m.items)+len(files) > MaxMediaCount {
		return fmt.Errorf("最多上传 %d 张图片，本次选择 %d 张已超出上限", MaxMediaCount, len(files))
	}

	var rejected []string
	var accepted []*StagedMedia

	for _, f := range files {
		contentType := sniffContentType(f.Data)
		switch {
		case !allowedMediaTypes[contentType]:
			rejected = append(rejected, fmt.Sprintf("%s：仅支持 JPEG/PNG 格式", f.Filename))
		case int64(len(f.Data)) > MaxMediaSize:
			rejected = append(rejected, fmt.Sprintf("%s：超过 %dMB 大小限制", f.Filename, MaxMediaSize/1024/1024))
		default:
			accepted = append(accepted, &StagedMedia{
				ID:          uuid.NewString(),
				Filename:    f.Filename,
				ContentType: contentType,
				Size:        int64(len(f.Data)),
				data:        f.Data,
			})
		}
	}

	// 按选择顺序入列，首张图片默认设为主图
	for _, item := range accepted {
		if len(m.items) == 0 {
			item.Primary = true
		}
		m.items = append(m.items, item)

		// 预览生成与落盘相对 AddFiles 是即发即忘的，调用方不等待
		go m.processAsync(item)
	}

	if m.onChange != nil && len(accepted) > 0 {
		m.onChange()
	}

	if len(rejected) > 0 {
		return fmt.Errorf("%s", strings.Join(rejected, "；"))
	}
	return nil
}

// Remove 删除指定图片
// 被删图片是主图时，主图身份转移给新的首张；集合为空则无主图
func (m *MediaStage) Remove(id string) bool {
	m.mu.Lock()

	idx := -1
	for i, item := range m.items {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return false
	}

	removed := m.items[idx]
	m.items = append(m.items[:idx], m.items[idx+1:]...)

	if removed.Primary && len(m.items) > 0 {
		m.items[0].Primary = true
	}

	storageURL := removed.StorageURL
	m.mu.Unlock()

	// 已落盘的数据即发即忘地清理
	if m.blobs != nil && storageURL != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := m.blobs.Delete(ctx, storageURL); err != nil {
				log.Printf("[MediaStage] 删除暂存图片失败: %v", err)
			}
		}()
	}

	if m.onChange != nil {
		m.onChange()
	}
	return true
}

// SetPrimary 指定主图，同时清除其余图片的主图标记
func (m *MediaStage) SetPrimary(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for _, item := range m.items {
		if item.ID == id {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	for _, item := range m.items {
		item.Primary = item.ID == id
	}

	if m.onChange != nil {
		m.onChange()
	}
	return true
}

// ==================== 查询 ====================

// Count 当前暂存数量
func (m *MediaStage) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Items 对外视图（按暂存顺序）
func (m *MediaStage) Items() []MediaView {
	m.mu.Lock()
	defer m.mu.Unlock()

	views := make([]MediaView, len(m.items))
	for i, item := range m.items {
		views[i] = MediaView{
			ID:           item.ID,
			Filename:     item.Filename,
			ContentType:  item.ContentType,
			Size:         item.Size,
			Primary:      item.Primary,
			Preview:      item.Preview,
			PreviewReady: item.Preview != "",
			StorageURL:   item.StorageURL,
		}
	}
	return views
}

// Refs 字符串引用（落盘快照用，不含二进制数据）
func (m *MediaStage) Refs() []model.MediaRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	refs := make([]model.MediaRef, len(m.items))
	for i, item := range m.items {
		refs[i] = model.MediaRef{
			ID:          item.ID,
			Filename:    item.Filename,
			ContentType: item.ContentType,
			Size:        item.Size,
			StorageURL:  item.StorageURL,
			Primary:     item.Primary,
		}
	}
	return refs
}

// RestoreRefs 从落盘引用恢复集合（无二进制数据，预览不可再生）
func (m *MediaStage) RestoreRefs(refs []model.MediaRef) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make([]*StagedMedia, len(refs))
	for i, ref := range refs {
		m.items[i] = &StagedMedia{
			ID:          ref.ID,
			Filename:    ref.Filename,
			ContentType: ref.ContentType,
			Size:        ref.Size,
			StorageURL:  ref.StorageURL,
			Primary:     ref.Primary,
		}
	}
}

// Files 提交阶段上送的图片（按暂存顺序）
func (m *MediaStage) Files() []UploadFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := make([]UploadFile, len(m.items))
	for i, item := range m.items {
		files[i] = UploadFile{
			Filename:    item.Filename,
			ContentType: item.ContentType,
			Data:        item.data,
			StorageURL:  item.StorageURL,
			Primary:     item.Primary,
		}
	}
	return files
}

// PurgeBlobs 清理全部已落盘图片（取消/过期清理时调用）
func (m *MediaStage) PurgeBlobs(ctx context.Context) {
	if m.blobs == nil {
		return
	}

	m.mu.Lock()
	urls := make([]string, 0, len(m.items))
	for _, item := range m.items {
		if item.StorageURL != "" {
			urls = append(urls, item.StorageURL)
		}
	}
	m.mu.Unlock()

	for _, url := range urls {
		if err := m.blobs.Delete(ctx, url); err != nil {
			log.Printf("[MediaStage] 清理暂存图片失败: %v", err)
		}
	}
}

// ==================== 异步处理 ====================

// processAsync 生成预览并上传存储，完成顺序不影响集合顺序
func (m *MediaStage) processAsync(item *StagedMedia) {
	preview := "data:" + item.ContentType + ";base64," + base64.StdEncoding.EncodeToString(item.data)

	m.mu.Lock()
	item.Preview = preview
	m.mu.Unlock()

	if m.blobs == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	key := fmt.Sprintf("staging/%s/%s_%s", m.sessionID, item.ID, item.Filename)
	url, err := m.blobs.Upload(ctx, item.data, key, item.ContentType)
	if err != nil {
		log.Printf("[MediaStage] 上传暂存图片失败: %v", err)
		return
	}

	m.mu.Lock()
	item.StorageURL = url
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange()
	}
}

// sniffContentType 从文件头嗅探类型，不信任客户端声明
func sniffContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}
