package handler

import (
	"io"
	"net/http"
	"strings"
	"testing"

	documentapp "github.com/biblioteca/backend/internal/application/document"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDocumentRouter(d DocumentDownloader, identity gin.HandlerFunc) *gin.Engine {
	h := NewDocumentHandler(d)
	router := gin.New()
	router.Use(identity)
	router.GET("/documents/:saleID/:kind", h.Download)
	return router
}

func TestDocumentHandler_Download(t *testing.T) {
	customer := uuid.New()

	t.Run("streams the pdf", func(t *testing.T) {
		d := new(mockDownloader)
		d.On("Download", mock.Anything, scopedTo(customer), "cs_1", documentapp.KindReceipt).
			Return(io.NopCloser(strings.NewReader("%PDF-1.7 receipt")), nil)

		w := perform(newDocumentRouter(d, as(customer)), http.MethodGet, "/documents/cs_1/receipt", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="receipt-cs_1.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
		assert.Equal(t, "%PDF-1.7 receipt", w.Body.String())
	})

	t.Run("unknown kind", func(t *testing.T) {
		d := new(mockDownloader)
		w := perform(newDocumentRouter(d, as(customer)), http.MethodGet, "/documents/cs_1/contract", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UNKNOWN_DOCUMENT_KIND", errorCodeOf(t, w))
		d.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unpaid sale has no documents", func(t *testing.T) {
		d := new(mockDownloader)
		d.On("Download", mock.Anything, mock.Anything, "cs_2", documentapp.KindInvoice).
			Return(nil, documentapp.ErrDocumentNotIssued)

		w := perform(newDocumentRouter(d, as(customer)), http.MethodGet, "/documents/cs_2/invoice", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing document", func(t *testing.T) {
		d := new(mockDownloader)
		d.On("Download", mock.Anything, mock.Anything, "cs_3", documentapp.KindInvoice).
			Return(nil, documentapp.ErrDocumentNotFound)

		w := perform(newDocumentRouter(d, as(customer)), http.MethodGet, "/documents/cs_3/INVOICE", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
