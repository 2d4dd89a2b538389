package httpapi

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmoliveira/docbox/internal/common"
	"github.com/dmoliveira/docbox/internal/server/services"
)

// writeError maps core errors onto HTTP statuses. Only the taxonomy kind
// and a safe message leave the process; underlying storage errors are
// logged by the services that produced them.
func (s *Server) writeError(c *gin.Context, err error) {
	var batchErr *common.PartialBatchError

	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrCyclicHierarchy):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found or does not belong to the user"})
	case errors.As(err, &batchErr):
		failed := make([]string, 0, len(batchErr.Failed))
		for _, item := range batchErr.Failed {
			failed = append(failed, item.ID)
		}
		c.JSON(http.StatusMultiStatus, gin.H{"error": "some items failed", "failedIds": failed})
	default:
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) handleIssueUpload(c *gin.Context) {
	grant, err := s.files.IssueUpload(c.Request.Context(), currentUserID(c), services.UploadInput{
		ContainerID: c.Query("containerId"),
		FileName:    c.Query("fileName"),
		FileSize:    c.Query("fileSize"),
		FileType:    c.Query("fileType"),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadUrl": grant.UploadURL,
		"key":       grant.Key,
		"fileId":    grant.FileID,
	})
}

type fileWithURLResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	FileType  string    `json:"fileType"`
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url"`
}

func (s *Server) handleListWithGrants(c *gin.Context) {
	files, err := s.files.ListWithDownloadGrants(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]fileWithURLResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fileWithURLResponse{
			ID:        f.ID,
			FileName:  f.FileName,
			FileType:  f.FileType,
			CreatedAt: f.CreatedAt,
			URL:       f.URL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"files": out})
}

func (s *Server) handleStream(c *gin.Context) {
	data, contentType, err := s.files.Stream(c.Request.Context(), currentUserID(c), c.Query("fileId"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline")
	c.Data(http.StatusOK, contentType, data)
}

func (s *Server) handleFileDetail(c *gin.Context) {
	detail, err := s.files.GetDetail(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{
		"id":          detail.File.ID,
		"containerId": detail.File.ContainerID,
		"userId":      detail.File.UserID,
		"key":         detail.File.Key,
		"fileName":    detail.File.FileName,
		"fileSize":    detail.File.FileSize,
		"fileType":    detail.File.FileType,
		"createdAt":   detail.File.CreatedAt,
	}
	if detail.Container != nil {
		resp["container"] = gin.H{
			"id":   detail.Container.ID,
			"name": detail.Container.Name,
		}
	}
	sigs := make([]gin.H, 0, len(detail.Signatures))
	for _, sig := range detail.Signatures {
		sigs = append(sigs, gin.H{
			"id":            sig.ID,
			"signatureType": sig.SignatureType,
			"signedAt":      sig.SignedAt,
		})
	}
	resp["signatures"] = sigs

	c.JSON(http.StatusOK, resp)
}

type updateFileRequest struct {
	FileID         string  `json:"fileId"`
	NewFileName    string  `json:"newFileName"`
	NewContainerID *string `json:"newContainerId"`
	NewContent     *struct {
		FileType string `json:"fileType"`
		FileSize string `json:"fileSize"`
		Data     string `json:"data"` // base64
	} `json:"newContent"`
}

func (s *Server) handleUpdateFile(c *gin.Context) {
	var req updateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in := services.UpdateFileInput{
		ID:             req.FileID,
		NewName:        req.NewFileName,
		NewContainerID: req.NewContainerID,
	}
	if req.NewContent != nil {
		var data []byte
		if req.NewContent.Data != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.NewContent.Data)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "newContent.data must be base64"})
				return
			}
			data = decoded
		}
		in.NewContent = &services.ContentReplacement{
			FileType: req.NewContent.FileType,
			FileSize: req.NewContent.FileSize,
			Data:     data,
		}
	}

	f, err := s.files.Update(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "file metadata updated successfully",
		"updatedFile": gin.H{
			"id":          f.ID,
			"containerId": f.ContainerID,
			"key":         f.Key,
			"fileName":    f.FileName,
			"fileSize":    f.FileSize,
			"fileType":    f.FileType,
		},
	})
}

type deleteFilesRequest struct {
	FileIDs []string `json:"fileIds"`
}

func (s *Server) handleDeleteFiles(c *gin.Context) {
	var req deleteFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileIds are required and must be a non-empty array"})
		return
	}

	result, err := s.files.Delete(c.Request.Context(), currentUserID(c), req.FileIDs)
	if err != nil {
		var batchErr *common.PartialBatchError
		if errors.As(err, &batchErr) && result != nil {
			failed := make([]string, 0, len(batchErr.Failed))
			for _, item := range batchErr.Failed {
				failed = append(failed, item.ID)
			}
			c.JSON(http.StatusMultiStatus, gin.H{
				"deleted":    result.Deleted,
				"skippedIds": result.Skipped,
				"failedIds":  failed,
			})
			return
		}
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted":    result.Deleted,
		"skippedIds": result.Skipped,
	})
}

type createContainerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    string `json:"parentId"`
}

func (s *Server) handleCreateContainer(c *gin.Context) {
	var req createContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	container, err := s.containers.Create(c.Request.Context(), currentUserID(c), services.CreateContainerInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          container.ID,
		"name":        container.Name,
		"description": container.Description,
		"parentId":    container.ParentID,
		"createdAt":   container.CreatedAt,
	})
}

func (s *Server) handleListContainers(c *gin.Context) {
	listings, err := s.containers.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(listings))
	for _, l := range listings {
		out = append(out, gin.H{
			"id":          l.ID,
			"name":        l.Name,
			"description": l.Description,
			"parentId":    l.ParentID,
			"createdAt":   l.CreatedAt,
			"filesCount":  l.FilesCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"containers": out})
}

type updateContainerRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *string `json:"parentId"`
}

func (s *Server) handleUpdateContainer(c *gin.Context) {
	var req updateContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	container, err := s.containers.Update(c.Request.Context(), currentUserID(c), services.UpdateContainerInput{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          container.ID,
		"name":        container.Name,
		"description": container.Description,
		"parentId":    container.ParentID,
	})
}

type deleteContainerRequest struct {
	ContainerID string `json:"containerId"`
}

func (s *Server) handleDeleteContainer(c *gin.Context) {
	var req deleteContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "containerId is required"})
		return
	}

	if err := s.containers.Delete(c.Request.Context(), currentUserID(c), req.ContainerID); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "container and files deleted successfully"})
}
