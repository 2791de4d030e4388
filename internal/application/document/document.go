package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/domain/shared"
)

// Kind is the type of fiscal document issued for a paid sale
type Kind string

const (
	KindInvoice Kind = "INVOICE"
	KindReceipt Kind = "RECEIPT"
)

// Kinds lists every document issued per sale
var Kinds = []Kind{KindInvoice, KindReceipt}

// ParseKind accepts "invoice"/"receipt" in any case
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	switch k {
	case KindInvoice, KindReceipt:
		return k, nil
	}
	return "", ErrUnknownKind
}

// ContentType is the media type of every generated document
const ContentType = "application/pdf"

// Document errors
var (
	ErrUnknownKind       = shared.NewDomainError("UNKNOWN_DOCUMENT_KIND", "Document kind must be invoice or receipt")
	ErrDocumentNotFound  = shared.NewDomainError("DOCUMENT_NOT_FOUND", "Document not found")
	ErrDocumentNotIssued = shared.NewDomainError("DOCUMENT_NOT_ISSUED", "Documents are only issued for paid sales")
	ErrObjectMissing     = errors.New("stored object does not exist")
)

// Generator renders a document for a paid sale
type Generator interface {
	Generate(ctx context.Context, sale *sales.Sale, kind Kind) ([]byte, error)
}

// Store keeps generated documents
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Open returns ErrObjectMissing when nothing is stored under key
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Key is the storage key of a sale's document
func Key(saleID string, kind Kind) string {
	return fmt.Sprintf("sales/%s/%s.pdf", saleID, strings.ToLower(string(kind)))
}

// FileName is the download name of a sale's document
func FileName(saleID string, kind Kind) string {
	return fmt.Sprintf("%s-%s.pdf", strings.ToLower(string(kind)), saleID)
}
