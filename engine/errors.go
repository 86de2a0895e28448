package engine

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSpecies         = errors.New("unknown species")
	ErrSpeciesAlreadySelected = errors.New("species already selected")
	ErrEmptyCompletion        = errors.New("empty completion")
	ErrClosed                 = errors.New("engine closed")
)

// ServiceError は生成サービス呼び出しの失敗です。セッションにとって致命的ではありません。
type ServiceError struct {
	Service string // "text" or "image"
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
