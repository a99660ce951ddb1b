package entity

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateProvider = errors.New("provider with this npi already exists")
)
