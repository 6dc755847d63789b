package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrNegativeStock = errors.New("stock cannot go below zero")
	ErrDuplicate     = errors.New("record already exists")
)

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
