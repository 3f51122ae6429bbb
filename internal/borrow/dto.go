package borrow

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"LIBRA-backend/internal/platform/auth"
	"LIBRA-backend/internal/platform/ids"
)

// ===== Requests =====

type CreateBorrowRequest struct {
	AccountID    string `json:"account_id,omitempty"` // 未指定なら呼び出し元
	BookID       string `json:"book_id" binding:"required"`
	DurationDays *int   `json:"duration_days" binding:"required"`
}

type UpdateStatusRequest struct {
	Status StatusValue `json:"status"`
}

// StatusValue accepts either the numeric code (0, 1, 2) or the name
// ("pending", "borrowed", "returned"). Unknown values decode to an invalid
// Status so the state machine rejects them as a transition.
type StatusValue struct {
	Status Status
	Set    bool
}

func (v *StatusValue) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		v.Status, v.Set = statusFromInt(n), true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		st, ok := ParseStatus(s)
		if !ok {
			st = invalidStatus
		}
		v.Status, v.Set = st, true
		return nil
	}
	return errors.New("status must be a number or a status name")
}

const invalidStatus = Status(255)

func statusFromInt(n int64) Status {
	if n < 0 || n >= int64(invalidStatus) {
		return invalidStatus
	}
	return Status(n)
}

// ===== Commands =====

// CreateBorrowCommand is a shape-checked create request.
type CreateBorrowCommand struct {
	AccountID    string
	BookID       string
	DurationDays int
}

// ParseCreateBorrow fills the account from the caller when omitted and
// rejects malformed ids. Range checks belong to the eligibility checker.
func ParseCreateBorrow(req CreateBorrowRequest, p auth.Principal) (CreateBorrowCommand, error) {
	cmd := CreateBorrowCommand{
		AccountID: strings.TrimSpace(req.AccountID),
		BookID:    strings.TrimSpace(req.BookID),
	}
	if cmd.AccountID == "" {
		cmd.AccountID = p.AccountID
	}
	if !ids.Valid(cmd.AccountID) {
		return CreateBorrowCommand{}, ErrInvalid("account_id is malformed")
	}
	if !ids.Valid(cmd.BookID) {
		return CreateBorrowCommand{}, ErrInvalid("book_id is malformed")
	}
	if req.DurationDays == nil {
		return CreateBorrowCommand{}, ErrInvalid("duration_days is required")
	}
	cmd.DurationDays = *req.DurationDays
	return cmd, nil
}

// ParseListQuery reads listing parameters from a query-string getter.
func ParseListQuery(get func(string) string) (ListQuery, error) {
	q := ListQuery{
		AccountID: strings.TrimSpace(get("account_id")),
		Username:  strings.TrimSpace(get("username")),
		AfterID:   strings.TrimSpace(get("after_id")),
	}
	if v := get("status"); v != "" {
		st, ok := ParseStatus(v)
		if !ok {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n > int(StatusReturned) {
				return ListQuery{}, ErrInvalid("status must be pending, borrowed or returned")
			}
			st = Status(n)
		}
		q.Status = &st
	}
	if v := get("past_due"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ListQuery{}, ErrInvalid("past_due must be true or false")
		}
		q.PastDue = &b
	}
	var err error
	if q.Offset, err = parseNonNegative(get("offset")); err != nil {
		return ListQuery{}, ErrInvalid("offset must be a non-negative integer")
	}
	if q.Limit, err = parseNonNegative(get("limit")); err != nil {
		return ListQuery{}, ErrInvalid("limit must be a non-negative integer")
	}
	return q, nil
}

func parseNonNegative(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, errors.New("negative")
	}
	return v, nil
}

// ===== Responses =====

type BorrowResponse struct {
	ID         string     `json:"id"`
	BookItemID string     `json:"book_item_id"`
	BookID     string     `json:"book_id"`
	AccountID  string     `json:"account_id"`
	CreateTime time.Time  `json:"create_time"`
	DueTime    time.Time  `json:"due_time"`
	Status     string     `json:"status"`
	StatusCode uint8      `json:"status_code"`
	PastDue    bool       `json:"past_due"`
	UpdateTime *time.Time `json:"update_time,omitempty"`
}

type BorrowListResponse struct {
	Items       []BorrowResponse `json:"items"`
	NextAfterID string           `json:"next_after_id,omitempty"`
}

func toBorrowResponse(b Borrow, now time.Time) BorrowResponse {
	return BorrowResponse{
		ID:         b.ID,
		BookItemID: b.BookItemID,
		BookID:     b.BookID,
		AccountID:  b.AccountID,
		CreateTime: b.CreateTime,
		DueTime:    b.DueTime,
		Status:     b.Status.String(),
		StatusCode: uint8(b.Status),
		PastDue:    b.PastDue(now),
		UpdateTime: b.UpdateTime,
	}
}
