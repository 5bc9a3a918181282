package models

import "errors"

var (
	ErrSelfConnection   = errors.New("connection endpoints must differ")
	ErrNonCanonicalPair = errors.New("connection pair must be stored with the lower id first")
)
