package projects

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/shared/server/respond"
	"research-backend/internal/shared/telemetry"
)

const maxUploadSize = 25 << 20 // 25MB per request

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches project routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/projects", h.list)
	rg.POST("/projects", h.create)
	rg.POST("/projects/bulk-delete", h.bulkDelete)
	rg.POST("/projects/bulk-bookmark", h.bulkBookmark)
	rg.GET("/projects/:id", h.get)
	rg.PUT("/projects/:id", h.save)
	rg.PATCH("/projects/:id", h.patch)
	rg.DELETE("/projects/:id", h.delete)
	rg.POST("/projects/:id/bookmark", h.toggleBookmark)
	rg.POST("/projects/:id/rename", h.rename)
	rg.POST("/projects/:id/files", h.addFiles)
	rg.POST("/projects/:id/files/remove", h.removeFiles)
	rg.DELETE("/projects/:id/files", h.clearFiles)
	rg.PUT("/projects/:id/paper", h.setPaper)
	rg.DELETE("/projects/:id/paper", h.clearPaper)
	rg.GET("/projects/:id/gate", h.gate)
	rg.POST("/projects/:id/analyze", h.analyze)
}

func (h *Handler) list(c *gin.Context) {
	bookmarked, _ := strconv.ParseBool(c.Query("bookmarked"))
	list, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), Filter{
		Search:         c.Query("search"),
		BookmarkedOnly: bookmarked,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toListResponse(list))
}

func (h *Handler) create(c *gin.Context) {
	p, err := h.Svc.CreateDefault(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.ProjectIDKey, p.ID)
	respond.Created(c, toResponse(p))
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) save(c *gin.Context) {
	var p Project
	if err := c.ShouldBindJSON(&p); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if p.ID == "" {
		p.ID = c.Param("id")
	}
	if p.ID != c.Param("id") {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id does not match path", nil)
		return
	}
	list, err := h.Svc.Save(c.Request.Context(), middleware.UserIDFromContext(c), p)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toListResponse(list))
}

func (h *Handler) patch(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.toPatch())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) delete(c *gin.Context) {
	list, err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toListResponse(list))
}

func (h *Handler) bulkDelete(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "ids are required", nil)
		return
	}
	list, err := h.Svc.BulkDelete(c.Request.Context(), middleware.UserIDFromContext(c), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toListResponse(list))
}

func (h *Handler) toggleBookmark(c *gin.Context) {
	list, err := h.Svc.ToggleBookmark(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toListResponse(list))
}

func (h *Handler) bulkBookmark(c *gin.Context) {
	var req bulkBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "ids are required", nil)
		return
	}
	list, err := h.Svc.BulkToggleBookmark(c.Request.Context(), middleware.UserIDFromContext(c), req.IDs, req.Bookmarked)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toListResponse(list))
}

func (h *Handler) rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	list, err := h.Svc.Rename(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toListResponse(list))
}

func (h *Handler) addFiles(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	form, err := c.MultipartForm()
	if err != nil || len(form.File["file"]) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	uploads, closeAll, err := openUploads(form.File["file"])
	defer closeAll()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	p, err := h.Svc.AddFiles(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), uploads)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) removeFiles(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "ids are required", nil)
		return
	}
	p, err := h.Svc.RemoveFiles(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) clearFiles(c *gin.Context) {
	p, err := h.Svc.ClearFiles(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) setPaper(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	uploads, closeAll, err := openUploads([]*multipart.FileHeader{fileHeader})
	defer closeAll()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	p, err := h.Svc.SetUserPaper(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), uploads[0])
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) clearPaper(c *gin.Context) {
	p, err := h.Svc.ClearUserPaper(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) gate(c *gin.Context) {
	failure, err := h.Svc.Gate(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if failure == nil {
		respond.OK(c, gateResponse{Allowed: true})
		return
	}
	respond.OK(c, gateResponse{Allowed: false, Code: failure.Code, Message: failure.Message})
}

func (h *Handler) analyze(c *gin.Context) {
	p, err := h.Svc.Analyze(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func openUploads(headers []*multipart.FileHeader) ([]Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		files = append(files, f)
		uploads = append(uploads, Upload{Name: fh.Filename, Body: f})
	}
	return uploads, closeAll, nil
}

func writeError(c *gin.Context, err error) {
	var failure *GateFailure
	switch {
	case errors.As(err, &failure):
		respond.Error(c, http.StatusUnprocessableEntity, "validation_failed", failure.Message, gin.H{"gate": failure.Code})
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, ErrAnalysisFailed):
		telemetry.Error("analysis.request_failed", map[string]any{
			"project_id": c.Param("id"),
			"error":      err,
		})
		respond.Error(c, http.StatusBadGateway, "analysis_failed", AnalysisFailedMessage, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
}
