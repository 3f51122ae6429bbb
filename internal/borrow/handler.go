package borrow

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"LIBRA-backend/internal/platform/auth"
	"LIBRA-backend/internal/platform/ids"
	"LIBRA-backend/internal/platform/requestid"
)

type Handler struct{ svc *Service }

// RegisterRoutes expects r to be behind auth.RequireAuth.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/borrows", h.CreateBorrow)
	r.GET("/borrows", h.ListBorrows)
	r.GET("/borrows/:id", h.GetBorrow)
	r.PATCH("/borrows/:id", h.UpdateStatus)
}

// ---------- handlers ----------

// CreateBorrow godoc
// @Summary  borrow a copy of a book
// @Tags     borrows
// @Accept   json
// @Produce  json
// @Param    body body CreateBorrowRequest true "account_id defaults to the caller"
// @Success  201 {object} BorrowResponse
// @Failure  400 {object} errorDTO
// @Failure  404 {object} errorDTO
// @Failure  409 {object} errorDTO
// @Router   /borrows [post]
func (h *Handler) CreateBorrow(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req CreateBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	cmd, err := ParseCreateBorrow(req, p)
	if err != nil {
		h.fail(c, err)
		return
	}

	b, err := h.svc.CreateBorrow(c.Request.Context(), p, cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", "/borrows/"+b.ID)
	c.JSON(http.StatusCreated, toBorrowResponse(*b, h.svc.Now()))
}

// ListBorrows godoc
// @Summary  list borrows (active only unless status is given)
// @Tags     borrows
// @Produce  json
// @Param    account_id query string false "privileged callers only"
// @Param    username   query string false "privileged callers only"
// @Param    status     query string false "pending | borrowed | returned"
// @Param    past_due   query bool   false "overdue filter"
// @Param    after_id   query string false "cursor"
// @Param    offset     query int    false "skip matching entries"
// @Param    limit      query int    false "page size (capped)"
// @Success  200 {object} BorrowListResponse
// @Router   /borrows [get]
func (h *Handler) ListBorrows(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	q, err := ParseListQuery(c.Query)
	if err != nil {
		h.fail(c, err)
		return
	}

	list, err := h.svc.ListBorrows(c.Request.Context(), p, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	now := h.svc.Now()
	res := BorrowListResponse{Items: make([]BorrowResponse, 0, len(list))}
	for _, b := range list {
		res.Items = append(res.Items, toBorrowResponse(b, now))
	}
	if n := len(list); n > 0 && n >= h.svc.PageSize(q.Limit) {
		res.NextAfterID = list[n-1].ID
	}
	c.JSON(http.StatusOK, res)
}

// GetBorrow godoc
// @Summary  get one borrow (owner or administrator)
// @Tags     borrows
// @Produce  json
// @Param    id path string true "borrow id"
// @Success  200 {object} BorrowResponse
// @Failure  400 {object} errorDTO
// @Failure  403 {object} errorDTO
// @Failure  404 {object} errorDTO
// @Router   /borrows/{id} [get]
func (h *Handler) GetBorrow(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := borrowID(c)
	if !ok {
		return
	}
	b, err := h.svc.GetBorrow(c.Request.Context(), p, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBorrowResponse(*b, h.svc.Now()))
}

// UpdateStatus godoc
// @Summary  move a borrow through pending -> borrowed -> returned
// @Tags     borrows
// @Accept   json
// @Produce  json
// @Param    id   path string              true "borrow id"
// @Param    body body UpdateStatusRequest true "status as code or name"
// @Success  200 {object} BorrowResponse
// @Failure  400 {object} errorDTO
// @Failure  403 {object} errorDTO
// @Failure  404 {object} errorDTO
// @Failure  422 {object} errorDTO
// @Router   /borrows/{id} [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := borrowID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Set {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "status is required"))
		return
	}

	b, err := h.svc.SetStatus(c.Request.Context(), p, id, req.Status.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBorrowResponse(*b, h.svc.Now()))
}

// ---------- helpers ----------

func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "authentication required"))
	}
	return p, ok
}

func borrowID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !ids.Valid(id) {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "borrow id is malformed"))
		return "", false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] request_id=%s %s %s: %v", requestid.From(c), c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, errorFromErr(err))
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var api *APIError
	if errors.As(err, &api) {
		return errorBody(api.Code, api.Message)
	}
	return errorBody(CodeInternal, "internal error")
}
