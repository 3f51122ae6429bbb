package borrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CanTransition_Table(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusBorrowed, true},
		{StatusBorrowed, StatusReturned, true},
		{StatusPending, StatusReturned, true},
		{StatusPending, StatusPending, false},
		{StatusBorrowed, StatusBorrowed, false},
		{StatusBorrowed, StatusPending, false},
		{StatusReturned, StatusPending, false},
		{StatusReturned, StatusBorrowed, false},
		{StatusReturned, StatusReturned, false},
		{StatusPending, Status(3), false},
		{StatusPending, invalidStatus, false},
		{Status(9), StatusReturned, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func Test_ParseStatus(t *testing.T) {
	s, ok := ParseStatus("Borrowed")
	assert.True(t, ok)
	assert.Equal(t, StatusBorrowed, s)

	_, ok = ParseStatus("lost")
	assert.False(t, ok)

	assert.Equal(t, "returned", StatusReturned.String())
	assert.Equal(t, "status(7)", Status(7).String())
}

func Test_Status_Active(t *testing.T) {
	assert.True(t, StatusPending.Active())
	assert.True(t, StatusBorrowed.Active())
	assert.False(t, StatusReturned.Active())
}
