package catalog

import "time"

// ===== Requests =====

type CreateBookRequest struct {
	Title       string    `json:"title" binding:"required"`
	Author      string    `json:"author" binding:"required"`
	PublishTime time.Time `json:"publish_time" binding:"required"`
	Synopsis    *string   `json:"synopsis,omitempty"`
	Background  *string   `json:"background,omitempty"`
	CategoryID  *uint     `json:"category_id,omitempty"`
	ISBN        *string   `json:"isbn,omitempty"`
}

type UpdateBookRequest struct {
	Title       *string    `json:"title,omitempty"`
	Author      *string    `json:"author,omitempty"`
	PublishTime *time.Time `json:"publish_time,omitempty"`
	Synopsis    *string    `json:"synopsis,omitempty"`
	Background  *string    `json:"background,omitempty"`
	CategoryID  *uint      `json:"category_id,omitempty"`
	ISBN        *string    `json:"isbn,omitempty"`
}

type CreateItemRequest struct {
	Name    *string `json:"name,omitempty"` // 未指定なら "Book Item No. N"
	Damaged bool    `json:"damaged"`
	Lost    bool    `json:"lost"`
}

type UpdateItemRequest struct {
	Name    *string `json:"name,omitempty"`
	Damaged *bool   `json:"damaged,omitempty"`
	Lost    *bool   `json:"lost,omitempty"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

type UpdateCategoryRequest struct {
	Name *string `json:"name,omitempty"`
	Code *string `json:"code,omitempty"`
}

// ===== Responses =====

type BookResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	PublishTime time.Time `json:"publish_time"`
	Synopsis    *string   `json:"synopsis,omitempty"`
	Background  *string   `json:"background,omitempty"`
	CategoryID  *uint     `json:"category_id,omitempty"`
	ISBN        *string   `json:"isbn,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ItemResponse struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Name      string    `json:"name"`
	Damaged   bool      `json:"damaged"`
	Lost      bool      `json:"lost"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	IsDisabled bool   `json:"is_disabled"`
}

type BookListResponse struct {
	Items      []BookResponse `json:"items"`
	Total      int64          `json:"total"`
	NextOffset *int           `json:"next_offset,omitempty"`
}

type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
}

func toBookResponse(b Book) BookResponse {
	return BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		PublishTime: b.PublishTime,
		Synopsis:    b.Synopsis,
		Background:  b.Background,
		CategoryID:  b.CategoryID,
		ISBN:        b.ISBN,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toItemResponse(it BookItem) ItemResponse {
	return ItemResponse{
		ID:        it.ID,
		BookID:    it.BookID,
		Name:      it.Name,
		Damaged:   it.Damaged,
		Lost:      it.Lost,
		CreatedAt: it.CreatedAt,
	}
}

func toCategoryResponse(c Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Code: c.Code, IsDisabled: c.IsDisabled}
}
