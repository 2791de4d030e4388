package printing

import (
	"embed"
	"fmt"

	"github.com/biblioteca/backend/internal/application/document"
)

//go:embed templates/*.html
var templateFS embed.FS

// DocumentTemplate describes the layout used for one document kind
type DocumentTemplate struct {
	Kind      document.Kind
	Name      string
	PaperSize PaperSize
	Landscape bool
	Margins   Margins
	FilePath  string // path within the embedded FS
}

// GetDefaultTemplates returns the layout of every document kind
func GetDefaultTemplates() []DocumentTemplate {
	return []DocumentTemplate{
		{
			Kind:      document.KindInvoice,
			Name:      "Nota Fiscal A4",
			PaperSize: PaperSizeA4,
			Margins:   DefaultMargins(),
			FilePath:  "templates/invoice_a4.html",
		},
		{
			Kind:      document.KindReceipt,
			Name:      "Recibo A4",
			PaperSize: PaperSizeA4,
			Margins:   Margins{Top: 20, Right: 15, Bottom: 20, Left: 15},
			FilePath:  "templates/receipt_a4.html",
		},
	}
}

// TemplateFor returns the layout and content for a document kind
func TemplateFor(kind document.Kind) (DocumentTemplate, string, error) {
	for _, tmpl := range GetDefaultTemplates() {
		if tmpl.Kind != kind {
			continue
		}
		content, err := templateFS.ReadFile(tmpl.FilePath)
		if err != nil {
			return DocumentTemplate{}, "", NewRenderError(ErrCodeTemplateNotFound,
				fmt.Sprintf("failed to read template %s", tmpl.FilePath), err)
		}
		return tmpl, string(content), nil
	}
	return DocumentTemplate{}, "", NewRenderError(ErrCodeTemplateNotFound,
		fmt.Sprintf("no template for document kind %s", kind), nil)
}
