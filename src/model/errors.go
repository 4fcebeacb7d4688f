package model

import "errors"

// ErrInvalidStateTransition is returned when a requested transition is not in
// the lifecycle table, e.g. a cancel attempt on a terminal order. The order's
// state is left unchanged.
var ErrInvalidStateTransition = errors.New("invalid state transition")
