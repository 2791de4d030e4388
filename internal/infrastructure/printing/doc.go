// Package printing renders the invoice and receipt of a paid sale to PDF.
//
// Rendering happens in two steps: TemplateEngine binds sale data to an
// embedded html/template, then a PDFRenderer (headless Chrome through
// chromedp) prints the HTML. SaleDocumentGenerator ties both together and
// satisfies the document generator port of the application layer.
//
//	renderer, err := NewChromedpRenderer(&ChromedpConfig{NoSandbox: true})
//	if err != nil {
//	    return err
//	}
//	defer renderer.Close()
//
//	gen := NewSaleDocumentGenerator(renderer, GeneratorConfig{Issuer: issuer})
//	pdf, err := gen.Generate(ctx, sale, document.KindInvoice)
package printing
