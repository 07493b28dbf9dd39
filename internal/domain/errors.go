package domain

import "github.com/pkg/errors"

var (
	ErrNotFound  = errors.New("order not found")
	ErrDuplicate = errors.New("order already registered")
)
