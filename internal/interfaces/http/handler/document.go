package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	documentapp "github.com/biblioteca/backend/internal/application/document"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentDownloader streams issued invoices and receipts
type DocumentDownloader interface {
	Download(ctx context.Context, customerID *uuid.UUID, saleID string, kind documentapp.Kind) (io.ReadCloser, error)
}

// DocumentHandler serves sale documents
type DocumentHandler struct {
	BaseHandler
	documents DocumentDownloader
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documents DocumentDownloader) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Download godoc
// @ID           downloadDocument
// @Summary      Download an invoice or receipt
// @Description  Documents exist only for PAID sales; a missing one is rendered on first download
// @Tags         documents
// @Produce      application/pdf
// @Param        saleID path string true "Sale id"
// @Param        kind   path string true "invoice or receipt"
// @Success      200 {file} binary
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Sale is not paid"
// @Router       /documents/{saleID}/{kind} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	scope, ok := h.customerScope(c)
	if !ok {
		return
	}

	kind, err := documentapp.ParseKind(c.Param("kind"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	saleID := c.Param("saleID")

	body, err := h.documents.Download(c.Request.Context(), scope, saleID, kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, -1, documentapp.ContentType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, documentapp.FileName(saleID, kind)),
		"Cache-Control":       "private, no-store",
	})
}
