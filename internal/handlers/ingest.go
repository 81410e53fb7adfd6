package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/mgsetel/vigilacore/internal/services"
	"github.com/mgsetel/vigilacore/pkg/response"
)

type IngestHandler struct {
	ingestService *services.IngestService
}

func NewIngestHandler(ingestService *services.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

// Ingest accepts one uploaded report file.
// POST /api/v1/reports/ingest (multipart: file, report_type, tenant_id)
func (h *IngestHandler) Ingest(c *gin.Context) {
	reportType := c.PostForm("report_type")
	tenantID := c.PostForm("tenant_id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing report file")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "cannot open uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), data, reportType, tenantID, fileHeader.Filename)
	if err != nil {
		var schemaErr *services.SchemaError
		if errors.As(err, &schemaErr) {
			// Batch rejected, nothing persisted. The outcome still
			// goes back so operators see the failure in context.
			c.JSON(400, gin.H{"error": schemaErr.Error(), "result": result})
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, result)
}
