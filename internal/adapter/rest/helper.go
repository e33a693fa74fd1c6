package rest

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/finverse/ledger-backend/internal/domain"
)

// Pagination is the page window echoed back with list responses
type Pagination[T any] struct {
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
	Items []T `json:"items"`
}

// GetPagination reads page/size query params, clamped to the store's bounds
func GetPagination[T any](c fiber.Ctx) Pagination[T] {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	size, _ := strconv.Atoi(c.Query("size", strconv.Itoa(domain.DefaultPageSize)))
	if size < 1 {
		size = 1
	} else if size > domain.MaxPageSize {
		size = domain.MaxPageSize
	}

	return Pagination[T]{
		Page:  page,
		Size:  size,
		Items: []T{},
	}
}

// Window converts the pagination into a store page
func (p Pagination[T]) Window() domain.Page {
	return domain.Page{Limit: p.Size, Offset: (p.Page - 1) * p.Size}
}

var validate = validator.New()

// ValidateInput runs the struct tags of a request schema
func ValidateInput(input any) error {
	return validate.Struct(input)
}
