package shared

import "context"

// Auditable is implemented by every entity that appears in the audit trail.
// The identifier is resolved by the entity itself; the audit recorder never
// inspects fields by name.
type Auditable interface {
	AuditKey() string
	AuditType() string
}

// AuditAction names an audited operation
type AuditAction string

const (
	AuditCartCreated     AuditAction = "CREATE_CART"
	AuditCartBookAdded   AuditAction = "ADD_BOOK"
	AuditCartBookRemoved AuditAction = "REMOVE_BOOK"
	AuditCartCleared     AuditAction = "CLEAR_CART"
	AuditSaleCreated     AuditAction = "SALE_CREATED"
	AuditSalePaid        AuditAction = "SALE_PAID"
	AuditSaleExpired     AuditAction = "SALE_EXPIRED"
	AuditLoanCreated     AuditAction = "LOAN_CREATED"
	AuditLoanReturned    AuditAction = "LOAN_RETURNED"
	AuditFineSettled     AuditAction = "FINE_SETTLED"
)

// AuditEntry is a single audited operation
type AuditEntry struct {
	Actor   string
	Action  AuditAction
	Subject Auditable
	Detail  string
}

// AuditRecorder receives audited operations. Recording is best-effort and
// must never fail the business operation that triggered it.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// NoopAuditRecorder discards all entries
type NoopAuditRecorder struct{}

// Record implements AuditRecorder
func (NoopAuditRecorder) Record(context.Context, AuditEntry) {}
