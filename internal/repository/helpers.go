package repository

import (
	"fmt"
	"strings"
)

// placeholders renders "$start,...,$start+n-1" for IN clauses.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ",")
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

func sortOrder(raw, fallback string) string {
	order := strings.ToUpper(raw)
	if order != "ASC" && order != "DESC" {
		return fallback
	}
	return order
}
