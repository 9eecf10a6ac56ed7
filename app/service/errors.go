package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrBackendUnsupported   = errors.New("backend is not supported")
	ErrRetryExhausted       = errors.New("retry attempts exhausted")
)
