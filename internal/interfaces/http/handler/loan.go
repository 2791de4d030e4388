package handler

import (
	"context"

	loanapp "github.com/biblioteca/backend/internal/application/loan"
	"github.com/biblioteca/backend/internal/domain/loan"
	"github.com/biblioteca/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LoanService is the lending use-case surface
type LoanService interface {
	Eligibility(ctx context.Context, userID uuid.UUID) (loan.Eligibility, error)
	CreateLoan(ctx context.Context, userID uuid.UUID, req loanapp.CreateLoanRequest) (*loanapp.LoanResponse, error)
	ReturnLoan(ctx context.Context, userID, loanID uuid.UUID) (*loanapp.FineResponse, error)
	ReceiveReturn(ctx context.Context, staffID, loanID uuid.UUID) (*loanapp.FineResponse, error)
	GetFine(ctx context.Context, userID, loanID uuid.UUID) (*loanapp.FineResponse, error)
	SettleFine(ctx context.Context, userID, loanID uuid.UUID) (*loanapp.FineResponse, error)
	ListLoans(ctx context.Context, userID uuid.UUID) ([]loanapp.LoanResponse, error)
	ListOverdue(ctx context.Context) ([]loanapp.LoanResponse, error)
	FineBalance(ctx context.Context, userID uuid.UUID) (*loanapp.FineBalanceResponse, error)
}

// LoanHandler handles loans and fines
type LoanHandler struct {
	BaseHandler
	loans LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loans LoanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

// GetEligibility godoc
// @ID           getLoanEligibility
// @Summary      Can the caller borrow?
// @Description  Not eligible with an overdue loan, at the active-loan cap, or with unpaid fines; reason names the first failed rule
// @Tags         loans
// @Produce      json
// @Success      200 {object} APIResponse[loan.Eligibility]
// @Router       /loans/eligibility [get]
func (h *LoanHandler) GetEligibility(c *gin.Context) {
	userID, ok := h.requireCustomer(c)
	if !ok {
		return
	}

	eligibility, err := h.loans.Eligibility(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, eligibility)
}

// CreateLoan godoc
// @ID           createLoan
// @Summary      Borrow a book
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        request body loanapp.CreateLoanRequest true "Book to borrow"
// @Success      201 {object} APIResponse[loanapp.LoanResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Not eligible or out of stock"
// @Router       /loans [post]
func (h *LoanHandler) CreateLoan(c *gin.Context) {
	userID, ok := h.requireCustomer(c)
	if !ok {
		return
	}

	var req loanapp.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.loans.CreateLoan(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListLoans godoc
// @ID           listLoans
// @Summary      The caller's loans with live fines
// @Tags         loans
// @Produce      json
// @Success      200 {object} APIResponse[[]loanapp.LoanResponse]
// @Router       /loans [get]
func (h *LoanHandler) ListLoans(c *gin.Context) {
	userID, ok := h.requireCustomer(c)
	if !ok {
		return
	}

	loans, err := h.loans.ListLoans(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, loans)
}

// ListOverdue godoc
// @ID           listOverdueLoans
// @Summary      Every overdue loan (staff)
// @Tags         loans
// @Produce      json
// @Success      200 {object} APIResponse[[]loanapp.LoanResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /loans/overdue [get]
func (h *LoanHandler) ListOverdue(c *gin.Context) {
	loans, err := h.loans.ListOverdue(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, loans)
}

// GetFineBalance godoc
// @ID           getFineBalance
// @Summary      The caller's unpaid and accruing fines
// @Tags         loans
// @Produce      json
// @Success      200 {object} APIResponse[loanapp.FineBalanceResponse]
// @Router       /loans/fines [get]
func (h *LoanHandler) GetFineBalance(c *gin.Context) {
	userID, ok := h.requireCustomer(c)
	if !ok {
		return
	}

	balance, err := h.loans.FineBalance(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// GetFine godoc
// @ID           getLoanFine
// @Summary      Fine of one loan
// @Description  Accrues daily while the loan is open and overdue; frozen once returned
// @Tags         loans
// @Produce      json
// @Param        id path string true "Loan id"
// @Success      200 {object} APIResponse[loanapp.FineResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /loans/{id}/fine [get]
func (h *LoanHandler) GetFine(c *gin.Context) {
	h.withLoan(c, h.loans.GetFine)
}

// ReturnLoan godoc
// @ID           returnLoan
// @Summary      Return a borrowed book
// @Description  Restores stock, frees the loan slot and freezes the fine.
// @Description  Staff may return any borrower's loan; customers only their own.
// @Tags         loans
// @Produce      json
// @Param        id path string true "Loan id"
// @Success      200 {object} APIResponse[loanapp.FineResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Already returned"
// @Router       /loans/{id}/return [post]
func (h *LoanHandler) ReturnLoan(c *gin.Context) {
	if middleware.IsStaff(c) {
		h.withLoan(c, h.loans.ReceiveReturn)
		return
	}
	h.withLoan(c, h.loans.ReturnLoan)
}

// SettleFine godoc
// @ID           settleLoanFine
// @Summary      Mark a loan's fine as paid
// @Tags         loans
// @Produce      json
// @Param        id path string true "Loan id"
// @Success      200 {object} APIResponse[loanapp.FineResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Loan still open or no fine due"
// @Router       /loans/{id}/settle [post]
func (h *LoanHandler) SettleFine(c *gin.Context) {
	h.withLoan(c, h.loans.SettleFine)
}

func (h *LoanHandler) withLoan(c *gin.Context, op func(ctx context.Context, userID, loanID uuid.UUID) (*loanapp.FineResponse, error)) {
	userID, ok := h.requireCustomer(c)
	if !ok {
		return
	}
	loanID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := op(c.Request.Context(), userID, loanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
