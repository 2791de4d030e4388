package catalog

import (
	"context"
	"errors"

	"github.com/biblioteca/backend/internal/domain/catalog"
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBookNotFound is returned when a book does not exist
var ErrBookNotFound = shared.NewDomainError("BOOK_NOT_FOUND", "Book not found")

// BookService serves catalog reads
type BookService struct {
	bookRepo catalog.BookRepository
	logger   *zap.Logger
}

// NewBookService creates a new BookService
func NewBookService(bookRepo catalog.BookRepository, logger *zap.Logger) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookService{bookRepo: bookRepo, logger: logger}
}

// GetByID returns one book with its current availability
func (s *BookService) GetByID(ctx context.Context, id uuid.UUID) (*BookResponse, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	resp := ToBookResponse(book)
	return &resp, nil
}

// List returns a page of books matching the filter
func (s *BookService) List(ctx context.Context, filter BookListFilter) ([]BookResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "title"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	books, total, err := s.bookRepo.List(ctx, catalog.BookFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		},
		Search: filter.Search,
	})
	if err != nil {
		s.logger.Error("Failed to list books", zap.Error(err))
		return nil, 0, err
	}

	responses := make([]BookResponse, len(books))
	for i, b := range books {
		responses[i] = ToBookResponse(b)
	}
	return responses, total, nil
}
