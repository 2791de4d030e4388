package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/biblioteca/backend/internal/domain/cart"
	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/moby/locker"
	"go.uber.org/zap"
)

// CartService handles cart mutations. Mutations for one customer are
// serialized in-process; the version column catches writers in other
// processes.
type CartService struct {
	carts   cart.CartRepository
	books   catalog.BookRepository
	auditor shared.AuditRecorder
	locks   *locker.Locker
	logger  *zap.Logger
}

// CartServiceConfig holds the dependencies of CartService
type CartServiceConfig struct {
	CartRepo cart.CartRepository
	BookRepo catalog.BookRepository
	Auditor  shared.AuditRecorder
	Logger   *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(cfg CartServiceConfig) *CartService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	auditor := cfg.Auditor
	if auditor == nil {
		auditor = shared.NoopAuditRecorder{}
	}
	return &CartService{
		carts:   cfg.CartRepo,
		books:   cfg.BookRepo,
		auditor: auditor,
		locks:   locker.New(),
		logger:  logger,
	}
}

// Get returns the customer's cart, creating an empty one on first access
func (s *CartService) Get(ctx context.Context, customerID uuid.UUID) (*CartResponse, error) {
	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return ToCartResponse(c), nil
}

// AddBook adds copies of a book, merging with an existing line.
// The stock check here only protects the customer from adding what is
// visibly out of stock; the reservation at payment time is authoritative.
func (s *CartService) AddBook(ctx context.Context, customerID uuid.UUID, req AddBookRequest) (*CartResponse, error) {
	unlock := s.lock(customerID)
	defer unlock()

	book, err := s.books.FindByID(ctx, req.BookID)
	if err != nil {
		return nil, err
	}

	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	wanted := req.Quantity
	for _, line := range c.Lines {
		if line.BookID == book.ID {
			wanted += line.Quantity
		}
	}
	if !book.HasStock(wanted) {
		s.logger.Info("Rejected cart addition: insufficient stock",
			zap.String("customer_id", customerID.String()),
			zap.String("book_id", book.ID.String()),
			zap.Int("requested", wanted),
			zap.Int("available", book.AvailableQuantity))
		return nil, shared.NewDomainError(shared.ErrInsufficientStock.Code,
			fmt.Sprintf("Only %d copies of '%s' are available", book.AvailableQuantity, book.Title))
	}

	if err := c.AddLine(book, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, shared.AuditEntry{
		Actor:   customerID.String(),
		Action:  shared.AuditCartBookAdded,
		Subject: c,
		Detail:  fmt.Sprintf("book=%s qty=%d", book.ID, req.Quantity),
	})
	s.logger.Debug("Book added to cart",
		zap.String("cart_id", c.ID.String()),
		zap.String("book_id", book.ID.String()),
		zap.Int("quantity", req.Quantity))

	return ToCartResponse(c), nil
}

// RemoveBook decrements the line with the given title. Removing a title
// that is not in the cart is not an error.
func (s *CartService) RemoveBook(ctx context.Context, customerID uuid.UUID, req RemoveBookRequest) (*CartResponse, error) {
	unlock := s.lock(customerID)
	defer unlock()

	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	found, err := c.RemoveLine(req.Title, req.Quantity)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Info("Title not in cart, nothing removed",
			zap.String("cart_id", c.ID.String()),
			zap.String("title", req.Title))
		return ToCartResponse(c), nil
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, shared.AuditEntry{
		Actor:   customerID.String(),
		Action:  shared.AuditCartBookRemoved,
		Subject: c,
		Detail:  fmt.Sprintf("title=%q qty=%d", req.Title, req.Quantity),
	})

	return ToCartResponse(c), nil
}

// Clear empties the customer's cart
func (s *CartService) Clear(ctx context.Context, customerID uuid.UUID) error {
	unlock := s.lock(customerID)
	defer unlock()

	c, err := s.carts.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if c.IsEmpty() {
		return nil
	}

	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		return err
	}

	s.auditor.Record(ctx, shared.AuditEntry{
		Actor:   customerID.String(),
		Action:  shared.AuditCartCleared,
		Subject: c,
	})
	return nil
}

// load fetches the cart, creating it lazily
func (s *CartService) load(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	c, err := s.carts.FindByCustomer(ctx, customerID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	c, err = s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, shared.AuditEntry{
		Actor:   customerID.String(),
		Action:  shared.AuditCartCreated,
		Subject: c,
	})
	return c, nil
}

// lock serializes mutations of one customer's cart and returns the release func
func (s *CartService) lock(customerID uuid.UUID) func() {
	key := customerID.String()
	s.locks.Lock(key)
	return func() {
		_ = s.locks.Unlock(key)
	}
}
