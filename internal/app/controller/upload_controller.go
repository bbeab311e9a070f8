package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/storage"
)

type UploadController struct {
	storage storage.ImageStorage
}

func NewUploadController(storage storage.ImageStorage) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// UploadImage stores a multipart "file" and returns its public URL (staff only)
// POST /api/v1/upload/image
func (ctrl *UploadController) UploadImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	header, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "multipart field \"file\" is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", err, nil)
		apperrors.InternalError(c, "")
		return
	}
	defer file.Close()

	object, err := ctrl.storage.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url": object.URL,
		"key": object.Key,
	})
}

// GeneratePresignedURL returns a direct-to-bucket upload URL (staff only)
// POST /api/v1/upload/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	var req GeneratePresignedURLRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := ctrl.storage.PresignUpload(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	middleware.GetLoggerFromContext(c).Info("Presigned URL generated successfully", map[string]interface{}{
		"content_type": req.ContentType,
		"key":          response.Key,
	})
	c.JSON(http.StatusOK, response)
}

func respondUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "only JPEG, PNG, GIF and WEBP images are allowed")
	case errors.Is(err, storage.ErrFileTooLarge):
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, err.Error())
	default:
		middleware.GetLoggerFromContext(c).Error("Image upload failed", err, nil)
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.UploadFailed, "image storage is unavailable")
	}
}
