package controllers

import (
	"rewear_go/utils"

	"github.com/gin-gonic/gin"
)

// UploadController 图片上传控制器
// 产出不透明图片引用，物品创建时按顺序引用。
type UploadController struct {
	uploader *utils.FileUploader
}

// NewUploadController 创建上传控制器实例
func NewUploadController() *UploadController {
	return &UploadController{
		uploader: utils.NewFileUploader(),
	}
}

// UploadImages 上传图片（字段名 images，最多5张）
func (upc *UploadController) UploadImages(c *gin.Context) {
	results, err := upc.uploader.UploadImages(c, "images")
	if err != nil {
		utils.ValidationFailed(c, err.Error())
		return
	}

	utils.Created(c, results)
}
