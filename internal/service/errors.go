package service

import "errors"

// Lifecycle errors are returned synchronously to the caller: a rejected
// staff action must surface in the UI immediately. None of these are
// fatal; a claim race in particular is an expected, frequent condition.
var (
	ErrNotFound                = errors.New("request not found")
	ErrAlreadyClaimed          = errors.New("request already claimed")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrNotAssignee             = errors.New("caller is not the assignee")
	ErrExtensionAlreadyPending = errors.New("a pending extension already exists for this request")
	ErrExtensionNotPending     = errors.New("extension is not pending review")
)
