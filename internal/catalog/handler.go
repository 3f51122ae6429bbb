package catalog

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts catalog routes on an authenticated group. Writes
// additionally pass through admin.
func RegisterRoutes(r gin.IRoutes, admin gin.HandlerFunc, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/books", h.ListBooks)
	r.GET("/books/:id", h.GetBook)
	r.POST("/books", admin, h.CreateBook)
	r.PATCH("/books/:id", admin, h.UpdateBook)
	r.DELETE("/books/:id", admin, h.DeleteBook)

	r.GET("/books/:id/items", h.ListItems)
	r.GET("/books/:id/items/:item_id", h.GetItem)
	r.POST("/books/:id/items", admin, h.CreateItem)
	r.PATCH("/books/:id/items/:item_id", admin, h.UpdateItem)
	r.DELETE("/books/:id/items/:item_id", admin, h.DeleteItem)
	r.GET("/books/:id/labels.csv", admin, h.ExportLabels)

	r.GET("/categories", h.ListCategories)
	r.POST("/categories", admin, h.CreateCategory)
	r.PATCH("/categories/:category_id", admin, h.UpdateCategory)
	r.DELETE("/categories/:category_id", admin, h.DeleteCategory)
}

// ---------- books ----------

// ListBooks godoc
// @Summary  search books
// @Tags     catalog
// @Produce  json
// @Param    q          query string false "matches title, author, synopsis, background"
// @Param    category_id query int false "category filter"
// @Param    published_after  query string false "RFC3339"
// @Param    published_before query string false "RFC3339"
// @Param    limit  query int false "page size (capped)"
// @Param    offset query int false "offset"
// @Success  200 {object} BookListResponse
// @Router   /books [get]
func (h *Handler) ListBooks(c *gin.Context) {
	q := BookSearch{Q: c.Query("q")}
	if v := c.Query("category_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("category_id must be an integer")))
			return
		}
		cid := uint(id)
		q.CategoryID = &cid
	}
	var err error
	if q.PublishedAfter, err = parseTimeQuery(c, "published_after"); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(err))
		return
	}
	if q.PublishedBefore, err = parseTimeQuery(c, "published_before"); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(err))
		return
	}

	res, err := h.svc.ListBooks(c.Request.Context(), q, pageFromQuery(c))
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetBook(c *gin.Context) {
	res, err := h.svc.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid json or missing required fields")))
		return
	}
	res, err := h.svc.CreateBook(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.Header("Location", "/books/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) UpdateBook(c *gin.Context) {
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid json")))
		return
	}
	res, err := h.svc.UpdateBook(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteBook(c *gin.Context) {
	if err := h.svc.DeleteBook(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- items ----------

func (h *Handler) ListItems(c *gin.Context) {
	f := ItemFilter{AfterID: c.Query("after_id")}
	var err error
	if f.Damaged, err = parseBoolQuery(c, "damaged"); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(err))
		return
	}
	if f.Lost, err = parseBoolQuery(c, "lost"); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(err))
		return
	}
	res, err := h.svc.ListItems(c.Request.Context(), c.Param("id"), f, pageFromQuery(c))
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetItem(c *gin.Context) {
	res, err := h.svc.GetItem(c.Request.Context(), c.Param("id"), c.Param("item_id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	// 空ボディは既定値で作成
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid json")))
			return
		}
	}
	res, err := h.svc.CreateItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.Header("Location", "/books/"+res.BookID+"/items/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid json")))
		return
	}
	res, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("item_id"), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("item_id")); err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportLabels streams the label CSV for a book.
func (h *Handler) ExportLabels(c *gin.Context) {
	rows, err := h.svc.LabelRows(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	var buf bytes.Buffer
	if err := WriteLabelsCSV(&buf, rows); err != nil {
		c.JSON(http.StatusInternalServerError, newErrDTO(ErrInternal("csv encoding failed")))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="labels.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=Shift_JIS", buf.Bytes())
}

// ---------- categories ----------

func (h *Handler) ListCategories(c *gin.Context) {
	res, err := h.svc.ListCategories(c.Request.Context(), c.Query("include_disabled") == "true")
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid json or missing required fields")))
		return
	}
	res, err := h.svc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := categoryParam(c)
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("invalid json")))
		return
	}
	res, err := h.svc.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := categoryParam(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== helpers =====

type errDTO struct {
	Error *APIError `json:"error"`
}

func newErrDTO(err error) errDTO {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return errDTO{Error: apiErr}
	}
	return errDTO{Error: ErrInternal("internal error")}
}

func categoryParam(c *gin.Context) (uint, bool) {
	v, err := strconv.ParseUint(c.Param("category_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, newErrDTO(ErrInvalid("category_id must be an integer")))
		return 0, false
	}
	return uint(v), true
}

func pageFromQuery(c *gin.Context) Page {
	return Page{
		Limit:  parseIntDefault(c.Query("limit"), 0),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func parseBoolQuery(c *gin.Context, key string) (*bool, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, ErrInvalid(key + " must be true or false")
	}
	return &b, nil
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, ErrInvalid(key + " must be RFC3339")
	}
	return &t, nil
}
