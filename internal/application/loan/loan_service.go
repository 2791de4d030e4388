package loan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/biblioteca/backend/internal/application/transaction"
	"github.com/biblioteca/backend/internal/domain/loan"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/biblioteca/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLoanNotFound is returned when a loan does not exist or belongs to someone else
var ErrLoanNotFound = shared.NewDomainError("LOAN_NOT_FOUND", "Loan not found")

// LoanService handles lending use cases
type LoanService struct {
	scope    transaction.Scope
	loanRepo loan.LoanRepository
	policy   loan.Policy
	auditor  shared.AuditRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// LoanServiceConfig holds the dependencies of LoanService
type LoanServiceConfig struct {
	Scope    transaction.Scope
	LoanRepo loan.LoanRepository
	Policy   loan.Policy
	Auditor  shared.AuditRecorder
	Logger   *zap.Logger
}

// NewLoanService creates a new LoanService
func NewLoanService(cfg LoanServiceConfig) *LoanService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	auditor := cfg.Auditor
	if auditor == nil {
		auditor = shared.NoopAuditRecorder{}
	}
	policy := cfg.Policy
	if policy.MaxActiveLoans <= 0 {
		policy = loan.DefaultPolicy()
	}
	return &LoanService{
		scope:    cfg.Scope,
		loanRepo: cfg.LoanRepo,
		policy:   policy,
		auditor:  auditor,
		logger:   logger,
		now:      time.Now,
	}
}

// Policy returns the lending rules in effect
func (s *LoanService) Policy() loan.Policy {
	return s.policy
}

// Eligibility reports whether the user may borrow now and, if not, why
func (s *LoanService) Eligibility(ctx context.Context, userID uuid.UUID) (loan.Eligibility, error) {
	snapshot, err := s.loanRepo.Snapshot(ctx, userID, s.now())
	if err != nil {
		s.logger.Error("Failed to load borrower standing",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return loan.Eligibility{}, err
	}
	return s.policy.Evaluate(snapshot), nil
}

// CreateLoan lends one copy of a book. Eligibility, the quota slot, the
// stock reservation and the loan row commit together or not at all.
func (s *LoanService) CreateLoan(ctx context.Context, userID uuid.UUID, req CreateLoanRequest) (*LoanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "loan", "create",
		telemetry.AttrCustomerID.String(userID.String()),
	)
	defer span.End()

	resp, err := s.createLoan(ctx, userID, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(telemetry.AttrLoanID.String(resp.ID.String()))
	return resp, nil
}

func (s *LoanService) createLoan(ctx context.Context, userID uuid.UUID, req CreateLoanRequest) (*LoanResponse, error) {
	log := s.logger.With(zap.String("user_id", userID.String()), zap.String("book_id", req.BookID.String()))
	log.Debug("Creating loan")

	now := s.now()
	var created *loan.Loan
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		book, err := repos.Books().FindByID(ctx, req.BookID)
		if err != nil {
			return err
		}

		snapshot, err := repos.Loans().Snapshot(ctx, userID, now)
		if err != nil {
			return err
		}
		if verdict := s.policy.Evaluate(snapshot); !verdict.Eligible {
			return verdict.Error()
		}

		acquired, err := repos.Quotas().Acquire(ctx, userID, s.policy.MaxActiveLoans)
		if err != nil {
			return fmt.Errorf("acquire loan quota: %w", err)
		}
		if !acquired {
			return loan.ErrLoanLimitReached
		}

		if err := repos.Inventory().Reserve(ctx, book.ID, 1); err != nil {
			return err
		}

		l, err := loan.NewLoan(userID, book, s.policy, now)
		if err != nil {
			return err
		}
		if err := repos.Loans().Create(ctx, l); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		log.Warn("Loan refused", zap.Error(err))
		return nil, err
	}

	s.auditor.Record(ctx, shared.AuditEntry{
		Actor:   userID.String(),
		Action:  shared.AuditLoanCreated,
		Subject: created,
		Detail:  fmt.Sprintf("due=%s", created.DueDate.Format(time.DateOnly)),
	})
	log.Info("Loan created",
		zap.String("loan_id", created.ID.String()),
		zap.Time("due_date", created.DueDate))

	resp := ToLoanResponse(created, now, s.policy.PenaltyRate)
	return &resp, nil
}

// ReturnLoan closes an active loan, freezing and returning its fine
func (s *LoanService) ReturnLoan(ctx context.Context, userID, loanID uuid.UUID) (*FineResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "loan", "return",
		telemetry.AttrCustomerID.String(userID.String()),
		telemetry.AttrLoanID.String(loanID.String()),
	)
	defer span.End()

	resp, err := s.returnLoan(ctx, userID, loanID, false)
	telemetry.RecordError(span, err)
	return resp, err
}

// ReceiveReturn closes any borrower's active loan at the desk. The staff
// member is recorded as the actor; quota and stock go back as on a
// self-service return.
func (s *LoanService) ReceiveReturn(ctx context.Context, staffID, loanID uuid.UUID) (*FineResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "loan", "receive_return",
		telemetry.AttrLoanID.String(loanID.String()),
	)
	defer span.End()

	resp, err := s.returnLoan(ctx, staffID, loanID, true)
	telemetry.RecordError(span, err)
	return resp, err
}

func (s *LoanService) returnLoan(ctx context.Context, actorID, loanID uuid.UUID, staff bool) (*FineResponse, error) {
	log := s.logger.With(zap.String("actor_id", actorID.String()), zap.String("loan_id", loanID.String()),
		zap.Bool("staff", staff))
	log.Debug("Returning loan")

	now := s.now()
	var returned *loan.Loan
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		var (
			l   *loan.Loan
			err error
		)
		if staff {
			l, err = s.findLoan(ctx, repos.Loans(), loanID)
		} else {
			l, err = s.ownedLoan(ctx, repos.Loans(), actorID, loanID)
		}
		if err != nil {
			return err
		}
		if _, err := l.Return(now, s.policy.PenaltyRate); err != nil {
			return err
		}
		if err := repos.Loans().Save(ctx, l, loan.StatusActive); err != nil {
			if errors.Is(err, shared.ErrConcurrentModification) {
				return loan.ErrAlreadyReturned
			}
			return err
		}
		if err := repos.Quotas().Release(ctx, l.UserID); err != nil {
			return fmt.Errorf("release loan quota: %w", err)
		}
		if err := repos.Inventory().Release(ctx, l.BookID, 1); err != nil {
			return err
		}
		returned = l
		return nil
	})
	if err != nil {
		log.Warn("Loan return failed", zap.Error(err))
		return nil, err
	}

	fine := returned.Fine(now, s.policy.PenaltyRate)
	s.auditor.Record(ctx, shared.AuditEntry{
		Actor:   actorID.String(),
		Action:  shared.AuditLoanReturned,
		Subject: returned,
		Detail:  fmt.Sprintf("borrower=%s fine=%s", returned.UserID, fine),
	})
	log.Info("Loan returned", zap.String("borrower_id", returned.UserID.String()), zap.String("fine", fine.String()))

	return s.fineResponse(returned, now), nil
}

// GetFine returns the live fine of an active loan or the frozen one after return
func (s *LoanService) GetFine(ctx context.Context, userID, loanID uuid.UUID) (*FineResponse, error) {
	l, err := s.ownedLoan(ctx, s.loanRepo, userID, loanID)
	if err != nil {
		return nil, err
	}
	return s.fineResponse(l, s.now()), nil
}

// SettleFine records payment of a returned loan's fine
func (s *LoanService) SettleFine(ctx context.Context, userID, loanID uuid.UUID) (*FineResponse, error) {
	log := s.logger.With(zap.String("user_id", userID.String()), zap.String("loan_id", loanID.String()))

	now := s.now()
	l, err := s.ownedLoan(ctx, s.loanRepo, userID, loanID)
	if err != nil {
		return nil, err
	}
	paid, err := l.SettleFine(now)
	if err != nil {
		return nil, err
	}
	if err := s.loanRepo.Save(ctx, l, loan.StatusReturned); err != nil {
		log.Error("Failed to settle fine", zap.Error(err))
		return nil, err
	}

	s.auditor.Record(ctx, shared.AuditEntry{
		Actor:   userID.String(),
		Action:  shared.AuditFineSettled,
		Subject: l,
		Detail:  fmt.Sprintf("amount=%s", paid),
	})
	log.Info("Fine settled", zap.String("amount", paid.String()))
	return s.fineResponse(l, now), nil
}

// ListLoans returns every loan of the user with fines as of now
func (s *LoanService) ListLoans(ctx context.Context, userID uuid.UUID) ([]LoanResponse, error) {
	loans, err := s.loanRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToLoanResponses(loans, s.now(), s.policy.PenaltyRate), nil
}

// ListOverdue returns all active loans past their due date
func (s *LoanService) ListOverdue(ctx context.Context) ([]LoanResponse, error) {
	now := s.now()
	loans, err := s.loanRepo.FindOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	return ToLoanResponses(loans, now, s.policy.PenaltyRate), nil
}

// FineBalance sums unpaid frozen fines and fines still accruing on active loans
func (s *LoanService) FineBalance(ctx context.Context, userID uuid.UUID) (*FineBalanceResponse, error) {
	loans, err := s.loanRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	unpaid := valueobject.Zero(valueobject.DefaultCurrency)
	accruing := valueobject.Zero(valueobject.DefaultCurrency)
	for _, l := range loans {
		if l.IsActive() {
			accruing = accruing.MustAdd(l.Fine(now, s.policy.PenaltyRate))
			continue
		}
		unpaid = unpaid.MustAdd(l.UnpaidFine())
	}
	return &FineBalanceResponse{
		UserID:   userID,
		Unpaid:   unpaid,
		Accruing: accruing,
		Total:    unpaid.MustAdd(accruing),
	}, nil
}

func (s *LoanService) ownedLoan(ctx context.Context, repo loan.LoanRepository, userID, loanID uuid.UUID) (*loan.Loan, error) {
	l, err := s.findLoan(ctx, repo, loanID)
	if err != nil {
		return nil, err
	}
	if l.UserID != userID {
		return nil, ErrLoanNotFound
	}
	return l, nil
}

func (s *LoanService) findLoan(ctx context.Context, repo loan.LoanRepository, loanID uuid.UUID) (*loan.Loan, error) {
	l, err := repo.FindByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *LoanService) fineResponse(l *loan.Loan, now time.Time) *FineResponse {
	effective := now
	if l.ReturnDate != nil {
		effective = *l.ReturnDate
	}
	return &FineResponse{
		LoanID:   l.ID,
		Fine:     l.Fine(now, s.policy.PenaltyRate),
		DaysLate: loan.DaysLate(l.DueDate, effective),
		Frozen:   l.FrozenFine != nil,
		Paid:     l.FinePaidAt != nil,
	}
}
