package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrUnavailable      = errors.New("vehicle is not available")
	ErrNotFound         = errors.New("not found")
	ErrGateway          = errors.New("payment gateway error")
	ErrUnknownStatus    = errors.New("unknown transaction status")
	ErrForbidden        = errors.New("forbidden")
	ErrNotPayable       = errors.New("order is no longer payable")
	ErrNotPaid          = errors.New("order has not been paid")
	ErrInvalidSignature = errors.New("invalid notification signature")
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isUnknownStatus(err error) bool {
	return errors.Is(err, ErrUnknownStatus)
}
