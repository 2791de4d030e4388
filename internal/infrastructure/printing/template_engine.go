package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when no locale is configured
var DefaultLocale = language.BrazilianPortuguese

// TemplateEngine binds document data to html/template content with
// locale-aware formatting functions.
type TemplateEngine struct {
	locale  language.Tag
	printer *message.Printer
	funcMap template.FuncMap
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithLocale sets the formatting locale
func WithLocale(tag language.Tag) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.locale = tag
	}
}

// ParseLocale parses a BCP 47 tag, falling back to DefaultLocale
func ParseLocale(raw string) language.Tag {
	if strings.TrimSpace(raw) == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return DefaultLocale
	}
	return tag
}

// NewTemplateEngine creates a template engine, pt-BR unless configured otherwise
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{locale: DefaultLocale}
	for _, opt := range opts {
		opt(e)
	}
	e.printer = message.NewPrinter(e.locale)

	e.funcMap = template.FuncMap{
		"formatMoney":    e.formatMoney,
		"moneyInWords":   moneyInWords,
		"formatDate":     e.formatDate,
		"formatDateTime": e.formatDateTime,
		"formatInt":      e.formatInt,
		"upper":          strings.ToUpper,
		"title":          e.title,
		"shortID":        shortID,
		"default":        defaultString,
	}
	return e
}

// Locale returns the formatting locale
func (e *TemplateEngine) Locale() language.Tag {
	return e.locale
}

// RenderString renders template content with the provided data
func (e *TemplateEngine) RenderString(name, content string, data any) (string, error) {
	if content == "" {
		return "", NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}

	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// GetFuncMap returns a copy of the template function map
func (e *TemplateEngine) GetFuncMap() template.FuncMap {
	funcMap := make(template.FuncMap, len(e.funcMap))
	maps.Copy(funcMap, e.funcMap)
	return funcMap
}

var currencySymbols = map[currency.Unit]string{
	currency.BRL: "R$",
	currency.USD: "US$",
	currency.EUR: "€",
}

// FormatMoney formats an amount with its currency symbol and the locale's
// separators, e.g. "R$ 1.234,50" for pt-BR
func (e *TemplateEngine) FormatMoney(m valueobject.Money) string {
	return e.formatAmount(m.Amount(), string(m.Currency()))
}

func (e *TemplateEngine) formatMoney(v any) string {
	if m, ok := v.(valueobject.Money); ok {
		return e.FormatMoney(m)
	}
	return e.formatAmount(toDecimal(v), string(valueobject.DefaultCurrency))
}

func (e *TemplateEngine) formatAmount(amount decimal.Decimal, code string) string {
	symbol := code
	if unit, err := currency.ParseISO(code); err == nil {
		if s, ok := currencySymbols[unit]; ok {
			symbol = s
		} else {
			symbol = unit.String()
		}
	}
	f, _ := amount.Round(2).Float64()
	return e.printer.Sprintf("%s %v", symbol, number.Decimal(f, number.Scale(2)))
}

func (e *TemplateEngine) formatInt(v any) string {
	return e.printer.Sprintf("%v", number.Decimal(toDecimal(v).IntPart()))
}

func (e *TemplateEngine) dateLayout() string {
	base, _ := e.locale.Base()
	switch base.String() {
	case "en":
		return "01/02/2006"
	case "pt", "es", "fr", "it", "de":
		return "02/01/2006"
	default:
		return "2006-01-02"
	}
}

func (e *TemplateEngine) formatDate(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format(e.dateLayout())
}

func (e *TemplateEngine) formatDateTime(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format(e.dateLayout() + " 15:04:05")
}

// title builds a Caser per call; Casers are not safe for concurrent use
func (e *TemplateEngine) title(s string) string {
	return cases.Title(e.locale).String(s)
}

// shortID keeps the last 8 characters of an identifier
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

func defaultString(def, val string) string {
	if strings.TrimSpace(val) == "" {
		return def
	}
	return val
}

func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case valueobject.Money:
		return val.Amount()
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		d, err := decimal.NewFromString(fmt.Sprint(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
}

func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	default:
		return time.Time{}
	}
}
