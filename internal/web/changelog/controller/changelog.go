// Package controller exposes the changelog over HTTP.
package controller

import (
	"bytes"
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/dto"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/service"
)

const (
	msgCreated          = "Changelog added successfully!"
	defaultPreviewTitle = "Changelog"
	defaultMaxBodyBytes = 64 << 20
)

// Changelog serves the timeline and accepts new entries
type Changelog struct {
	svc          *service.Service
	previewTitle string
	maxBodyBytes int64
}

// Option configures Changelog
type Option func(*Changelog)

// WithPreviewTitle sets the heading of the preview page
func WithPreviewTitle(title string) Option {
	return func(c *Changelog) {
		if title != "" {
			c.previewTitle = title
		}
	}
}

// WithMaxBodyBytes caps the size of a POST body
func WithMaxBodyBytes(n int64) Option {
	return func(c *Changelog) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// New creates the controller
func New(svc *service.Service, opts ...Option) (*Changelog, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}

	c := &Changelog{
		svc:          svc,
		previewTitle: defaultPreviewTitle,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Register mounts the routes on r
func (c *Changelog) Register(r gin.IRouter) {
	r.GET("/", c.List)
	r.POST("/", c.Create)
	r.GET("/preview", c.Preview)
}

func loggerFromCtx(ctx *gin.Context) logSDK.Logger {
	return gmw.GetLogger(ctx).Named("changelog_http")
}

func abortWithError(ctx *gin.Context, logger logSDK.Logger, status int, msg string, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("changelog http error", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn("changelog http warning", zap.Int("status", status), zap.Error(err))
	}

	ctx.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// List handles GET /
func (c *Changelog) List(ctx *gin.Context) {
	logger := loggerFromCtx(ctx)

	entries, err := c.svc.ListEntries(ctx)
	if err != nil {
		abortWithError(ctx, logger, http.StatusInternalServerError, "failed to fetch changelog entries", err)
		return
	}

	ctx.JSON(http.StatusOK, entries)
}

// Create handles POST /
func (c *Changelog) Create(ctx *gin.Context) {
	logger := loggerFromCtx(ctx)
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBodyBytes)

	form, err := ctx.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			abortWithError(ctx, logger, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}

		abortWithError(ctx, logger, http.StatusBadRequest, "expected multipart form data", err)
		return
	}

	req, err := dto.ParseCreateEntryForm(form)
	if err != nil {
		abortWithError(ctx, logger, http.StatusBadRequest, err.Error(), err)
		return
	}

	entry, err := c.svc.CreateEntry(ctx, req)
	if err != nil {
		status, msg := statusForCreateError(err)
		abortWithError(ctx, logger, status, msg, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": msgCreated,
		"date":    entry.Date,
	})
}

// statusForCreateError maps service errors to a status and a client message
func statusForCreateError(err error) (int, string) {
	switch {
	case errors.Is(err, dto.ErrInvalidRequest),
		errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidImage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, service.ErrEntryExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrMediaUpload):
		return http.StatusBadGateway, "failed to upload media"
	default:
		return http.StatusInternalServerError, "failed to add changelog"
	}
}

// Preview handles GET /preview
func (c *Changelog) Preview(ctx *gin.Context) {
	logger := loggerFromCtx(ctx)

	entries, err := c.svc.ListEntries(ctx)
	if err != nil {
		abortWithError(ctx, logger, http.StatusInternalServerError, "failed to fetch changelog entries", err)
		return
	}

	buf := new(bytes.Buffer)
	if err = service.RenderPreview(buf, c.previewTitle, entries); err != nil {
		abortWithError(ctx, logger, http.StatusInternalServerError, "failed to render preview", err)
		return
	}

	ctx.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
