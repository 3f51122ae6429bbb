package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	mysql "github.com/go-sql-driver/mysql"

	"LIBRA-backend/internal/platform/ids"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// mapStoreErr translates storage errors. Unknown errors are logged and
// surfaced as INTERNAL without driver details.
func mapStoreErr(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound(notFound)
	}
	if errors.Is(err, errActiveBorrows) {
		return ErrConflict(err.Error())
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062: // duplicate key
			return ErrConflict("already exists")
		case 1452: // foreign key constraint fails
			return ErrInvalid("invalid category_id")
		}
	}
	log.Printf("[ERROR] catalog store: %v", err)
	return ErrInternal("storage error")
}

type Service struct {
	repo      Repository
	clock     ids.Clock
	ids       ids.IDGen
	pageLimit int
}

func NewService(conn *sql.DB, pageLimit int) *Service {
	return newService(NewStore(conn), ids.SystemClock(), pageLimit)
}

func newService(repo Repository, clock ids.Clock, pageLimit int) *Service {
	return &Service{repo: repo, clock: clock, ids: ids.NewULIDGen(clock), pageLimit: pageLimit}
}

// clampPage applies the page ceiling. A non-positive limit means "ceiling".
func (s *Service) clampPage(p Page) Page {
	if p.Limit <= 0 || p.Limit > s.pageLimit {
		p.Limit = s.pageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ===== Lookups used by borrow =====

// FindBook returns (nil, nil) when the book does not exist.
func (s *Service) FindBook(ctx context.Context, id string) (*Book, error) {
	b, err := s.repo.GetBook(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	return b, nil
}

// ListBookItems returns every item of the book in creation order.
func (s *Service) ListBookItems(ctx context.Context, bookID string) ([]BookItem, error) {
	items, err := s.repo.ListItems(ctx, bookID, ItemFilter{}, Page{})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	return items, nil
}

// ===== Books =====

func (s *Service) CreateBook(ctx context.Context, in CreateBookRequest) (BookResponse, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Author) == "" {
		return BookResponse{}, ErrInvalid("title and author are required")
	}
	if in.PublishTime.IsZero() {
		return BookResponse{}, ErrInvalid("publish_time is required")
	}
	id, err := s.ids.New()
	if err != nil {
		return BookResponse{}, ErrInternal("id generation failed")
	}
	now := s.clock.Now()
	b := &Book{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		PublishTime: in.PublishTime.UTC(),
		Synopsis:    in.Synopsis,
		Background:  in.Background,
		CategoryID:  in.CategoryID,
		ISBN:        in.ISBN,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertBook(ctx, b); err != nil {
		return BookResponse{}, mapStoreErr(err, "book not found")
	}
	log.Printf("[INFO] book created id=%s", b.ID)
	return toBookResponse(*b), nil
}

func (s *Service) GetBook(ctx context.Context, id string) (BookResponse, error) {
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return BookResponse{}, mapStoreErr(err, "book not found")
	}
	return toBookResponse(*b), nil
}

func (s *Service) ListBooks(ctx context.Context, q BookSearch, p Page) (BookListResponse, error) {
	p = s.clampPage(p)
	books, total, err := s.repo.SearchBooks(ctx, q, p)
	if err != nil {
		return BookListResponse{}, mapStoreErr(err, "")
	}
	out := BookListResponse{Items: make([]BookResponse, 0, len(books)), Total: total}
	for _, b := range books {
		out.Items = append(out.Items, toBookResponse(b))
	}
	if next := p.Offset + len(books); int64(next) < total {
		out.NextOffset = &next
	}
	return out, nil
}

func (s *Service) UpdateBook(ctx context.Context, id string, in UpdateBookRequest) (BookResponse, error) {
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return BookResponse{}, mapStoreErr(err, "book not found")
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return BookResponse{}, ErrInvalid("title must not be empty")
		}
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		if strings.TrimSpace(*in.Author) == "" {
			return BookResponse{}, ErrInvalid("author must not be empty")
		}
		b.Author = strings.TrimSpace(*in.Author)
	}
	if in.PublishTime != nil {
		b.PublishTime = in.PublishTime.UTC()
	}
	if in.Synopsis != nil {
		b.Synopsis = in.Synopsis
	}
	if in.Background != nil {
		b.Background = in.Background
	}
	if in.CategoryID != nil {
		b.CategoryID = in.CategoryID
	}
	if in.ISBN != nil {
		b.ISBN = in.ISBN
	}
	b.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateBook(ctx, b); err != nil {
		return BookResponse{}, mapStoreErr(err, "book not found")
	}
	return toBookResponse(*b), nil
}

func (s *Service) DeleteBook(ctx context.Context, id string) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return mapStoreErr(err, "book not found")
	}
	log.Printf("[INFO] book deleted id=%s", id)
	return nil
}

// ===== Items =====

func (s *Service) CreateItem(ctx context.Context, bookID string, in CreateItemRequest) (ItemResponse, error) {
	id, err := s.ids.New()
	if err != nil {
		return ItemResponse{}, ErrInternal("id generation failed")
	}
	it := &BookItem{
		ID:        id,
		BookID:    bookID,
		Damaged:   in.Damaged,
		Lost:      in.Lost,
		CreatedAt: s.clock.Now(),
	}
	if in.Name != nil {
		it.Name = strings.TrimSpace(*in.Name)
	}
	if err := s.repo.InsertItem(ctx, it); err != nil {
		return ItemResponse{}, mapStoreErr(err, "book not found")
	}
	return toItemResponse(*it), nil
}

func (s *Service) GetItem(ctx context.Context, bookID, itemID string) (ItemResponse, error) {
	it, err := s.repo.GetItem(ctx, bookID, itemID)
	if err != nil {
		return ItemResponse{}, mapStoreErr(err, "book item not found")
	}
	return toItemResponse(*it), nil
}

func (s *Service) ListItems(ctx context.Context, bookID string, f ItemFilter, p Page) (ItemListResponse, error) {
	if _, err := s.repo.GetBook(ctx, bookID); err != nil {
		return ItemListResponse{}, mapStoreErr(err, "book not found")
	}
	items, err := s.repo.ListItems(ctx, bookID, f, s.clampPage(p))
	if err != nil {
		return ItemListResponse{}, mapStoreErr(err, "")
	}
	out := ItemListResponse{Items: make([]ItemResponse, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, toItemResponse(it))
	}
	return out, nil
}

// UpdateItem changes flags only. Marking a copy lost or damaged does not
// touch an existing borrow of it.
func (s *Service) UpdateItem(ctx context.Context, bookID, itemID string, in UpdateItemRequest) (ItemResponse, error) {
	it, err := s.repo.GetItem(ctx, bookID, itemID)
	if err != nil {
		return ItemResponse{}, mapStoreErr(err, "book item not found")
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return ItemResponse{}, ErrInvalid("name must not be empty")
		}
		it.Name = strings.TrimSpace(*in.Name)
	}
	if in.Damaged != nil {
		it.Damaged = *in.Damaged
	}
	if in.Lost != nil {
		it.Lost = *in.Lost
	}
	if err := s.repo.UpdateItem(ctx, it); err != nil {
		return ItemResponse{}, mapStoreErr(err, "book item not found")
	}
	return toItemResponse(*it), nil
}

func (s *Service) DeleteItem(ctx context.Context, bookID, itemID string) error {
	if err := s.repo.DeleteItem(ctx, bookID, itemID); err != nil {
		return mapStoreErr(err, "book item not found")
	}
	return nil
}

// ===== Categories =====

func (s *Service) CreateCategory(ctx context.Context, in CreateCategoryRequest) (CategoryResponse, error) {
	c := &Category{Name: strings.TrimSpace(in.Name), Code: strings.ToUpper(strings.TrimSpace(in.Code))}
	if c.Name == "" || c.Code == "" {
		return CategoryResponse{}, ErrInvalid("name and code are required")
	}
	if err := s.repo.InsertCategory(ctx, c); err != nil {
		return CategoryResponse{}, mapStoreErr(err, "")
	}
	return toCategoryResponse(*c), nil
}

func (s *Service) ListCategories(ctx context.Context, includeDisabled bool) ([]CategoryResponse, error) {
	cs, err := s.repo.ListCategories(ctx, includeDisabled)
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	out := make([]CategoryResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCategoryResponse(c))
	}
	return out, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uint, in UpdateCategoryRequest) (CategoryResponse, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return CategoryResponse{}, mapStoreErr(err, "category not found")
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Code != nil {
		c.Code = strings.ToUpper(strings.TrimSpace(*in.Code))
	}
	if c.Name == "" || c.Code == "" {
		return CategoryResponse{}, ErrInvalid("name and code must not be empty")
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return CategoryResponse{}, mapStoreErr(err, "category not found")
	}
	return toCategoryResponse(*c), nil
}

func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	return mapStoreErr(s.repo.DisableCategory(ctx, id), "category not found")
}

// ===== Labels =====

// LabelRows returns the non-lost items of a book for label printing.
func (s *Service) LabelRows(ctx context.Context, bookID string) ([]LabelRow, error) {
	b, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return nil, mapStoreErr(err, "book not found")
	}
	items, err := s.repo.ListItems(ctx, bookID, ItemFilter{}, Page{})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	rows := make([]LabelRow, 0, len(items))
	for _, it := range items {
		if it.Lost {
			continue
		}
		rows = append(rows, LabelRow{Title: b.Title, ItemName: it.Name, ItemID: it.ID, Damaged: it.Damaged})
	}
	if len(rows) == 0 {
		return nil, ErrInvalid("no printable items")
	}
	return rows, nil
}
