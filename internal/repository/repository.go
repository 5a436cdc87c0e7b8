// Package repository holds the GORM data access layer. Services depend on
// the interfaces declared here, never on *gorm.DB queries of their own,
// except for opening transactions through DB().
package repository

import (
	"strings"

	"gorm.io/gorm"
)

// paginate applies OFFSET/LIMIT for a 1-based page.
func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			return db
		}
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}

// likePattern builds a case-insensitive LIKE pattern. Callers compare against
// LOWER(column) so the query behaves the same on postgres and sqlite.
func likePattern(s string) string {
	return "%" + lowerTrim(s) + "%"
}

func lowerTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
