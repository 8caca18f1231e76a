package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/services"
)

type DataSourceHandler struct {
	log         *logger.Logger
	dataSources services.DataSourceService
}

func NewDataSourceHandler(log *logger.Logger, dataSources services.DataSourceService) *DataSourceHandler {
	return &DataSourceHandler{
		log:         log.With("handler", "DataSourceHandler"),
		dataSources: dataSources,
	}
}

// Upload accepts either a multipart file (CSV or JSON text) or a raw JSON
// body. Bytes are decoded here; the service only sees text or parsed JSON.
func (h *DataSourceHandler) Upload(c *gin.Context) {
	orgID, ok := parseIDParam(c, "orgId")
	if !ok {
		return
	}

	contentType := c.GetHeader("Content-Type")
	if strings.Contains(contentType, "multipart/form-data") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_upload", err)
			return
		}
		defer file.Close()
		raw, err := io.ReadAll(file)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_upload", err)
			return
		}
		name := c.PostForm("name")
		if name == "" {
			name = header.Filename
		}
		source, err := h.dataSources.Ingest(c.Request.Context(), orgID, name, string(raw))
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		RespondCreated(c, source)
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
		Data any    `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	source, err := h.dataSources.Ingest(c.Request.Context(), orgID, req.Name, req.Data)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, source)
}

func (h *DataSourceHandler) List(c *gin.Context) {
	orgID, ok := parseIDParam(c, "orgId")
	if !ok {
		return
	}
	sources, err := h.dataSources.ListByOrganization(c.Request.Context(), orgID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, sources)
}

func (h *DataSourceHandler) Get(c *gin.Context) {
	sourceID, ok := parseIDParam(c, "sourceId")
	if !ok {
		return
	}
	source, err := h.dataSources.Get(c.Request.Context(), sourceID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, source)
}

func (h *DataSourceHandler) Delete(c *gin.Context) {
	sourceID, ok := parseIDParam(c, "sourceId")
	if !ok {
		return
	}
	if err := h.dataSources.Delete(c.Request.Context(), sourceID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
