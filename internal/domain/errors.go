package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID    = errors.New("invalid user id")
	ErrNotFound     = errors.New("user not found")
	ErrDuplicateKey = errors.New("email already exists")
)

// ValidationError 字段级校验失败
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// StoreError 无法归类的后端错误（连接失败等）
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(op string, err error) error { return &StoreError{Op: op, Err: err} }

type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindInvalidID
	KindNotFound
	KindDuplicateKey
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidID:
		return "invalid_id"
	case KindNotFound:
		return "not_found"
	case KindDuplicateKey:
		return "duplicate_key"
	default:
		return "store"
	}
}

// KindOf 把任意错误归到五类之一；未知错误一律视为 StoreError
func KindOf(err error) Kind {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrInvalidID):
		return KindInvalidID
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicateKey):
		return KindDuplicateKey
	default:
		return KindStore
	}
}
