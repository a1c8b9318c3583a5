package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rewear_go/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadConfig 上传配置
type UploadConfig struct {
	MaxFileSize    int64    // 最大文件大小（字节）
	AllowedFormats []string // 允许的文件格式
	UploadPath     string   // 上传路径
	MaxFiles       int      // 单次最多上传数量
}

// DefaultUploadConfig 默认上传配置
// 上限与物品图片上限一致：一个物品最多5张图。
var DefaultUploadConfig = &UploadConfig{
	MaxFileSize:    10 * 1024 * 1024, // 10MB
	AllowedFormats: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
	UploadPath:     "./uploads",
	MaxFiles:       models.MaxItemImages,
}

// UploadResult 上传结果
// Ref 是交换核心使用的不透明图片引用，顺序即展示顺序。
type UploadResult struct {
	Ref      string `json:"ref"`
	FileSize int64  `json:"file_size"`
	FileName string `json:"file_name"`
}

// FileUploader 文件上传器
type FileUploader struct {
	config *UploadConfig
}

// NewFileUploader 创建文件上传器实例
func NewFileUploader(config ...*UploadConfig) *FileUploader {
	cfg := DefaultUploadConfig
	if len(config) > 0 && config[0] != nil {
		cfg = config[0]
	}
	return &FileUploader{config: cfg}
}

// UploadImages 上传一组图片，返回按上传顺序排列的引用
func (fu *FileUploader) UploadImages(c *gin.Context, fieldName string) ([]*UploadResult, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	files := form.File[fieldName]
	if len(files) == 0 {
		return nil, fmt.Errorf("no files in field %s", fieldName)
	}
	if len(files) > fu.config.MaxFiles {
		return nil, fmt.Errorf("at most %d images per upload", fu.config.MaxFiles)
	}

	// 创建目录
	if err := os.MkdirAll(fu.config.UploadPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	results := make([]*UploadResult, 0, len(files))
	for _, file := range files {
		// 验证文件大小
		if file.Size > fu.config.MaxFileSize {
			return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", file.Filename, fu.config.MaxFileSize)
		}

		// 验证文件格式
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !fu.isAllowedFormat(ext) {
			return nil, fmt.Errorf("file format %s is not allowed", ext)
		}

		// 生成引用并保存
		ref := generateImageRef(ext)
		dstPath := filepath.Join(fu.config.UploadPath, ref)

		src, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}

		dst, err := os.Create(dstPath)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("failed to save file: %w", err)
		}

		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to write file: %w", err)
		}

		results = append(results, &UploadResult{
			Ref:      ref,
			FileSize: file.Size,
			FileName: file.Filename,
		})
	}

	return results, nil
}

// isAllowedFormat 检查文件格式
func (fu *FileUploader) isAllowedFormat(ext string) bool {
	for _, allowed := range fu.config.AllowedFormats {
		if ext == allowed {
			return true
		}
	}
	return false
}

// generateImageRef 生成不透明图片引用
func generateImageRef(ext string) string {
	return fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.New().String(), ext)
}
