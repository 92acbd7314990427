package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/attendance-ease-api/internal/models"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
