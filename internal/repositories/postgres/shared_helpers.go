package postgres

import (
	"errors"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/repositories"
	"gorm.io/gorm"
)

// SharedHelpers contains query building blocks reused across repositories
type SharedHelpers struct{}

func NewSharedHelpers() *SharedHelpers {
	return &SharedHelpers{}
}

// translateError maps gorm errors onto repository sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.ErrDuplicate
	default:
		return err
	}
}

// likePattern escapes LIKE wildcards and wraps the term for a contains match
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(term)) + "%"
}

// bookStatsQuery selects books with their rating aggregates and file flags
func (h *SharedHelpers) bookStatsQuery(db *gorm.DB) *gorm.DB {
	ratingAgg := db.Session(&gorm.Session{NewDB: true}).
		Table("ratings").
		Select("book_id, AVG(rating) AS avg_rating, COUNT(*) AS cnt").
		Group("book_id")

	return db.Table("books").
		Select(`books.*,
			COALESCE(ROUND(r.avg_rating::numeric, 1), 0) AS average_rating,
			COALESCE(r.cnt, 0) AS ratings_count,
			EXISTS (SELECT 1 FROM files f WHERE f.book_id = books.id AND f.type = 'cover') AS has_cover,
			EXISTS (SELECT 1 FROM files f WHERE f.book_id = books.id AND f.type = 'pdf') AS has_pdf`).
		Joins("LEFT JOIN (?) AS r ON r.book_id = books.id", ratingAgg)
}

// ApplyBookFilters applies catalog filters to a query rooted at books
func (h *SharedHelpers) ApplyBookFilters(query *gorm.DB, filters repositories.BookFilters) *gorm.DB {
	if strings.TrimSpace(filters.Search) != "" {
		pattern := likePattern(filters.Search)
		query = query.Where(
			"books.title ILIKE ? OR books.author ILIKE ? OR books.description ILIKE ? OR books.isbn ILIKE ?",
			pattern, pattern, pattern, pattern)
	}
	if strings.TrimSpace(filters.Author) != "" {
		query = query.Where("books.author ILIKE ?", likePattern(filters.Author))
	}
	if filters.CategoryID != nil {
		query = query.Where(
			"EXISTS (SELECT 1 FROM book_categories bc WHERE bc.book_id = books.id AND bc.category_id = ?)",
			*filters.CategoryID)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if sortBy == "" || !repositories.BookSortColumns[sortBy] {
		sortBy = "created_at"
	}

	// Aggregates are select aliases, everything else lives on books
	column := sortBy
	if sortBy != "average_rating" && sortBy != "ratings_count" {
		column = "books." + sortBy
	}

	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	query = query.Order(column + " " + sortOrder).Order("books.id " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// applyLimitOffset applies plain pagination
func applyLimitOffset(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
