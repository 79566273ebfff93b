package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
)

type bookRepo struct {
	r *Repository
}

func (b *bookRepo) Create(ctx context.Context, book *models.Book) error {
	defer b.r.lock()()

	s := b.r.s
	s.seq.book++
	book.ID = s.seq.book
	ts := now()
	book.CreatedAt = ts
	book.UpdatedAt = ts

	s.books[book.ID] = copyBook(book)
	return nil
}

func (b *bookRepo) Update(ctx context.Context, book *models.Book) error {
	defer b.r.lock()()

	existing, ok := b.r.s.books[book.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	book.UpdatedAt = now()
	existing.Title = book.Title
	existing.Author = book.Author
	existing.Description = book.Description
	existing.ISBN = book.ISBN
	existing.UpdatedAt = book.UpdatedAt
	return nil
}

func (b *bookRepo) Delete(ctx context.Context, id uint) error {
	defer b.r.lock()()

	s := b.r.s
	if _, ok := s.books[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.books, id)
	delete(s.bookCategories, id)

	for fid, file := range s.files {
		if file.BookID == id {
			delete(s.files, fid)
		}
	}
	for rid, rating := range s.ratings {
		if rating.BookID == id {
			delete(s.ratings, rid)
		}
	}
	for rid, reservation := range s.reservations {
		if reservation.BookID == id {
			delete(s.reservations, rid)
		}
	}
	return nil
}

func (b *bookRepo) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	defer b.r.lock()()

	book, ok := b.r.s.books[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyBook(book), nil
}

// GetForUpdate is GetByID; the transaction already holds the store lock
func (b *bookRepo) GetForUpdate(ctx context.Context, id uint) (*models.Book, error) {
	return b.GetByID(ctx, id)
}

func (b *bookRepo) withStats(book *models.Book) *models.BookWithStats {
	s := b.r.s
	row := &models.BookWithStats{Book: *copyBook(book)}

	var sum float64
	for _, rating := range s.ratings {
		if rating.BookID == book.ID {
			sum += rating.Rating
			row.RatingsCount++
		}
	}
	if row.RatingsCount > 0 {
		row.AverageRating = models.RoundRating(sum / float64(row.RatingsCount))
	}

	for _, file := range s.files {
		if file.BookID != book.ID {
			continue
		}
		switch file.Type {
		case models.FileTypeCover:
			row.HasCover = true
		case models.FileTypePDF:
			row.HasPDF = true
		}
	}
	return row
}

func (b *bookRepo) GetWithStats(ctx context.Context, id uint) (*models.BookWithStats, error) {
	defer b.r.lock()()

	book, ok := b.r.s.books[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return b.withStats(book), nil
}

func (b *bookRepo) matches(book *models.Book, filters repositories.BookFilters) bool {
	if search := strings.ToLower(strings.TrimSpace(filters.Search)); search != "" {
		isbn := ""
		if book.ISBN != nil {
			isbn = *book.ISBN
		}
		found := false
		for _, field := range []string{book.Title, book.Author, book.Description, isbn} {
			if strings.Contains(strings.ToLower(field), search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if author := strings.ToLower(strings.TrimSpace(filters.Author)); author != "" {
		if !strings.Contains(strings.ToLower(book.Author), author) {
			return false
		}
	}
	if filters.CategoryID != nil && !b.r.s.bookCategories[book.ID][*filters.CategoryID] {
		return false
	}
	return true
}

// compareBooks orders two rows by a whitelisted column, returning -1, 0 or 1
func compareBooks(a, c *models.BookWithStats, column string) int {
	cmpInt := func(x, y int64) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	switch column {
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(c.Title))
	case "author":
		return strings.Compare(strings.ToLower(a.Author), strings.ToLower(c.Author))
	case "updated_at":
		return a.UpdatedAt.Compare(c.UpdatedAt)
	case "available_copies":
		return cmpInt(int64(a.AvailableCopies), int64(c.AvailableCopies))
	case "total_copies":
		return cmpInt(int64(a.TotalCopies), int64(c.TotalCopies))
	case "average_rating":
		switch {
		case a.AverageRating < c.AverageRating:
			return -1
		case a.AverageRating > c.AverageRating:
			return 1
		}
		return 0
	case "ratings_count":
		return cmpInt(a.RatingsCount, c.RatingsCount)
	case "id":
		return cmpInt(int64(a.ID), int64(c.ID))
	default:
		return a.CreatedAt.Compare(c.CreatedAt)
	}
}

func (b *bookRepo) List(ctx context.Context, filters repositories.BookFilters) ([]*models.BookWithStats, int64, error) {
	defer b.r.lock()()

	var rows []*models.BookWithStats
	for _, book := range b.r.s.books {
		if b.matches(book, filters) {
			rows = append(rows, b.withStats(book))
		}
	}

	column := filters.SortBy
	if !repositories.BookSortColumns[column] {
		column = "created_at"
	}
	desc := !strings.EqualFold(filters.SortOrder, "asc")

	sort.Slice(rows, func(i, j int) bool {
		cmp := compareBooks(rows[i], rows[j], column)
		if cmp == 0 {
			cmp = compareBooks(rows[i], rows[j], "id")
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	total := int64(len(rows))
	return paginate(rows, filters.Limit, filters.Offset), total, nil
}

func (b *bookRepo) allWithStats() []*models.BookWithStats {
	rows := make([]*models.BookWithStats, 0, len(b.r.s.books))
	for _, book := range b.r.s.books {
		rows = append(rows, b.withStats(book))
	}
	return rows
}

func (b *bookRepo) Popular(ctx context.Context, limit int) ([]*models.BookWithStats, error) {
	defer b.r.lock()()

	rows := b.allWithStats()
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RatingsCount != rows[j].RatingsCount {
			return rows[i].RatingsCount > rows[j].RatingsCount
		}
		if rows[i].AverageRating != rows[j].AverageRating {
			return rows[i].AverageRating > rows[j].AverageRating
		}
		return rows[i].ID < rows[j].ID
	})
	return paginate(rows, limit, 0), nil
}

func (b *bookRepo) Newest(ctx context.Context, limit int) ([]*models.BookWithStats, error) {
	defer b.r.lock()()

	rows := b.allWithStats()
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	return paginate(rows, limit, 0), nil
}

func (b *bookRepo) ReplaceCategories(ctx context.Context, bookID uint, categoryIDs []uint) error {
	defer b.r.lock()()

	s := b.r.s
	if _, ok := s.books[bookID]; !ok {
		return repositories.ErrNotFound
	}
	set := make(map[uint]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		if _, ok := s.categories[id]; !ok {
			return repositories.ErrNotFound
		}
		set[id] = true
	}
	s.bookCategories[bookID] = set
	return nil
}

func (b *bookRepo) CategoriesForBooks(ctx context.Context, bookIDs []uint) (map[uint][]models.Category, error) {
	defer b.r.lock()()

	s := b.r.s
	result := make(map[uint][]models.Category, len(bookIDs))
	for _, bookID := range bookIDs {
		for categoryID := range s.bookCategories[bookID] {
			if category, ok := s.categories[categoryID]; ok {
				result[bookID] = append(result[bookID], models.Category{ID: category.ID, Name: category.Name})
			}
		}
		sort.Slice(result[bookID], func(i, j int) bool {
			return result[bookID][i].Name < result[bookID][j].Name
		})
	}
	return result, nil
}

func (b *bookRepo) DecrementAvailable(ctx context.Context, id uint) error {
	defer b.r.lock()()

	book, ok := b.r.s.books[id]
	if !ok || book.AvailableCopies <= 0 {
		return repositories.ErrNoAvailableCopies
	}
	book.AvailableCopies--
	book.UpdatedAt = now()
	return nil
}

func (b *bookRepo) IncrementAvailable(ctx context.Context, id uint) error {
	defer b.r.lock()()

	book, ok := b.r.s.books[id]
	if !ok || book.AvailableCopies >= book.TotalCopies {
		return repositories.ErrCopyOverflow
	}
	book.AvailableCopies++
	book.UpdatedAt = now()
	return nil
}

func (b *bookRepo) AdjustCopies(ctx context.Context, id uint, delta int) error {
	if delta == 0 {
		return nil
	}
	defer b.r.lock()()

	book, ok := b.r.s.books[id]
	if !ok || book.AvailableCopies+delta < 0 {
		return repositories.ErrNoAvailableCopies
	}
	book.TotalCopies += delta
	book.AvailableCopies += delta
	book.UpdatedAt = now()
	return nil
}

func (b *bookRepo) CopyCounts(ctx context.Context, id uint) (*repositories.CopyCounts, error) {
	defer b.r.lock()()

	book, ok := b.r.s.books[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}

	var active int64
	for _, reservation := range b.r.s.reservations {
		if reservation.BookID == id && reservation.Status.IsActive() {
			active++
		}
	}

	return &repositories.CopyCounts{
		BookID:             id,
		TotalCopies:        book.TotalCopies,
		AvailableCopies:    book.AvailableCopies,
		ActiveReservations: active,
	}, nil
}

// ===== CATEGORIES =====

type categoryRepo struct {
	r *Repository
}

func (c *categoryRepo) nameTaken(name string, excludeID uint) bool {
	for _, existing := range c.r.s.categories {
		if existing.ID != excludeID && strings.EqualFold(existing.Name, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

func (c *categoryRepo) bookCount(id uint) int64 {
	var count int64
	for _, set := range c.r.s.bookCategories {
		if set[id] {
			count++
		}
	}
	return count
}

func (c *categoryRepo) Create(ctx context.Context, category *models.Category) error {
	defer c.r.lock()()

	s := c.r.s
	if c.nameTaken(category.Name, 0) {
		return repositories.ErrDuplicate
	}
	s.seq.category++
	category.ID = s.seq.category
	ts := now()
	category.CreatedAt = ts
	category.UpdatedAt = ts

	stored := *category
	s.categories[category.ID] = &stored
	return nil
}

func (c *categoryRepo) Update(ctx context.Context, category *models.Category) error {
	defer c.r.lock()()

	existing, ok := c.r.s.categories[category.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if c.nameTaken(category.Name, category.ID) {
		return repositories.ErrDuplicate
	}
	category.UpdatedAt = now()
	existing.Name = category.Name
	existing.UpdatedAt = category.UpdatedAt
	return nil
}

func (c *categoryRepo) Delete(ctx context.Context, id uint) error {
	defer c.r.lock()()

	s := c.r.s
	if _, ok := s.categories[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.categories, id)
	for _, set := range s.bookCategories {
		delete(set, id)
	}
	return nil
}

func (c *categoryRepo) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	defer c.r.lock()()

	category, ok := c.r.s.categories[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	result := *category
	result.BookCount = c.bookCount(id)
	return &result, nil
}

func (c *categoryRepo) GetByIDs(ctx context.Context, ids []uint) ([]models.Category, error) {
	defer c.r.lock()()

	var result []models.Category
	for _, id := range ids {
		if category, ok := c.r.s.categories[id]; ok {
			result = append(result, *category)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (c *categoryRepo) List(ctx context.Context) ([]*models.Category, error) {
	defer c.r.lock()()

	result := make([]*models.Category, 0, len(c.r.s.categories))
	for _, category := range c.r.s.categories {
		item := *category
		item.BookCount = c.bookCount(category.ID)
		result = append(result, &item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (c *categoryRepo) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	defer c.r.lock()()
	return c.nameTaken(name, excludeID), nil
}

func (c *categoryRepo) CountBooks(ctx context.Context, id uint) (int64, error) {
	defer c.r.lock()()
	return c.bookCount(id), nil
}

// ===== FILES =====

type fileRepo struct {
	r *Repository
}

func (f *fileRepo) Create(ctx context.Context, file *models.File) error {
	defer f.r.lock()()

	s := f.r.s
	if _, ok := s.books[file.BookID]; !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range s.files {
		if existing.BookID == file.BookID && existing.Type == file.Type {
			return repositories.ErrDuplicate
		}
	}

	s.seq.file++
	file.ID = s.seq.file
	ts := now()
	if file.UploadedAt.IsZero() {
		file.UploadedAt = ts
	}
	file.CreatedAt = ts
	file.UpdatedAt = ts

	stored := *file
	s.files[file.ID] = &stored
	return nil
}

func (f *fileRepo) Delete(ctx context.Context, id uint) error {
	defer f.r.lock()()

	if _, ok := f.r.s.files[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.r.s.files, id)
	return nil
}

func (f *fileRepo) GetByID(ctx context.Context, id uint) (*models.File, error) {
	defer f.r.lock()()

	file, ok := f.r.s.files[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *file
	return &c, nil
}

func (f *fileRepo) GetByBookAndType(ctx context.Context, bookID uint, fileType models.FileType) (*models.File, error) {
	defer f.r.lock()()

	for _, file := range f.r.s.files {
		if file.BookID == bookID && file.Type == fileType {
			c := *file
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fileRepo) ListByBook(ctx context.Context, bookID uint) ([]*models.File, error) {
	defer f.r.lock()()

	var files []*models.File
	for _, file := range f.r.s.files {
		if file.BookID == bookID {
			c := *file
			files = append(files, &c)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Type < files[j].Type })
	return files, nil
}
