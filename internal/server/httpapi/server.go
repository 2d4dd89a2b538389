// Package httpapi exposes the lifecycle orchestrators over HTTP. Routing and
// request plumbing live here; every decision about blobs, records and
// ordering belongs to the services.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmoliveira/docbox/internal/logging"
	"github.com/dmoliveira/docbox/internal/server/models"
	"github.com/dmoliveira/docbox/internal/server/services"
)

// FileService is the file-lifecycle surface the handlers call.
type FileService interface {
	IssueUpload(ctx context.Context, userID string, in services.UploadInput) (*services.UploadGrant, error)
	ListWithDownloadGrants(ctx context.Context, userID string) ([]*models.FileWithURL, error)
	Stream(ctx context.Context, userID, fileID string) ([]byte, string, error)
	GetDetail(ctx context.Context, userID, fileID string) (*services.FileDetail, error)
	Update(ctx context.Context, userID string, in services.UpdateFileInput) (*models.File, error)
	Delete(ctx context.Context, userID string, fileIDs []string) (*services.DeleteResult, error)
}

// ContainerService is the container-lifecycle surface the handlers call.
type ContainerService interface {
	Create(ctx context.Context, userID string, in services.CreateContainerInput) (*models.Container, error)
	List(ctx context.Context, userID string) ([]*models.ContainerListing, error)
	Update(ctx context.Context, userID string, in services.UpdateContainerInput) (*models.Container, error)
	Delete(ctx context.Context, userID, containerID string) error
}

type Server struct {
	address    string
	logger     logging.Logger
	files      FileService
	containers ContainerService
	jwtSecret  []byte
}

func NewServer(address string, logger logging.Logger, files FileService, containers ContainerService, secretKey string) *Server {
	return &Server{
		address:    address,
		logger:     logger.With("module", "http_server"),
		files:      files,
		containers: containers,
		jwtSecret:  []byte(secretKey),
	}
}

// Router builds the gin engine with all API routes mounted behind the auth
// middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api", authRequired(s.jwtSecret))
	{
		api.GET("/media", s.handleIssueUpload)
		api.GET("/file-access-url", s.handleListWithGrants)
		api.GET("/file-stream", s.handleStream)
		api.GET("/files/:id", s.handleFileDetail)
		api.PUT("/update-media", s.handleUpdateFile)
		api.POST("/remove-media", s.handleDeleteFiles)

		api.GET("/containers", s.handleListContainers)
		api.POST("/containers", s.handleCreateContainer)
		api.PATCH("/containers/:id", s.handleUpdateContainer)
		api.POST("/remove-container", s.handleDeleteContainer)
	}

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
