package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/biblioteca/backend/internal/application/document"
	"github.com/biblioteca/backend/internal/domain/sales"
	"github.com/biblioteca/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// footerTemplate is Chrome's header/footer template syntax
const footerTemplate = `<div style="font-size:8px;width:100%;text-align:center;color:#777;">` +
	`<span class="pageNumber"></span>/<span class="totalPages"></span></div>`

// GeneratorConfig holds the settings of SaleDocumentGenerator
type GeneratorConfig struct {
	Issuer         Issuer
	LoanPeriodDays int
	RenderTimeout  time.Duration
	Engine         *TemplateEngine
	Logger         *zap.Logger
}

// SaleDocumentGenerator renders invoices and receipts of paid sales
type SaleDocumentGenerator struct {
	renderer       PDFRenderer
	engine         *TemplateEngine
	issuer         Issuer
	loanPeriodDays int
	timeout        time.Duration
	logger         *zap.Logger
}

var _ document.Generator = (*SaleDocumentGenerator)(nil)

// NewSaleDocumentGenerator creates a generator printing through renderer
func NewSaleDocumentGenerator(renderer PDFRenderer, cfg GeneratorConfig) *SaleDocumentGenerator {
	engine := cfg.Engine
	if engine == nil {
		engine = NewTemplateEngine()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	period := cfg.LoanPeriodDays
	if period <= 0 {
		period = 7
	}
	return &SaleDocumentGenerator{
		renderer:       renderer,
		engine:         engine,
		issuer:         cfg.Issuer,
		loanPeriodDays: period,
		timeout:        cfg.RenderTimeout,
		logger:         logger,
	}
}

// RenderHTML binds the sale to the template of kind without printing it
func (g *SaleDocumentGenerator) RenderHTML(sale *sales.Sale, kind document.Kind) (DocumentTemplate, string, error) {
	tmpl, content, err := TemplateFor(kind)
	if err != nil {
		return DocumentTemplate{}, "", err
	}
	data := NewSaleDocumentData(sale, kind, g.issuer, g.loanPeriodDays)
	html, err := g.engine.RenderString(tmpl.FilePath, content, data)
	if err != nil {
		return DocumentTemplate{}, "", err
	}
	return tmpl, html, nil
}

// Generate renders the document of kind for a paid sale
func (g *SaleDocumentGenerator) Generate(ctx context.Context, sale *sales.Sale, kind document.Kind) (pdf []byte, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "generate",
		telemetry.AttrSaleID.String(sale.ID),
		attribute.String("document.kind", string(kind)))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if sale.Status != sales.StatusPaid {
		return nil, document.ErrDocumentNotIssued
	}

	tmpl, html, err := g.RenderHTML(sale, kind)
	if err != nil {
		return nil, err
	}

	result, err := g.renderer.Render(ctx, &RenderRequest{
		HTML:       html,
		PaperSize:  tmpl.PaperSize,
		Landscape:  tmpl.Landscape,
		Margins:    tmpl.Margins,
		Title:      fmt.Sprintf("%s %s", documentTitles[kind], sale.ID),
		FooterHTML: footerTemplate,
		Timeout:    g.timeout,
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("document.pages", result.PageCount))
	g.logger.Debug("Sale document rendered",
		zap.String("sale_id", sale.ID),
		zap.String("kind", string(kind)),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration))
	return result.PDFData, nil
}
