// Package memory is an in-process implementation of repositories.Repository.
// Transactions are serialized under one mutex and restore a snapshot when the
// callback fails, which gives the same all-or-nothing behaviour as postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
)

type store struct {
	mu sync.Mutex

	users          map[string]*models.User
	books          map[uint]*models.Book
	bookCategories map[uint]map[uint]bool // book id -> category ids
	categories     map[uint]*models.Category
	files          map[uint]*models.File
	ratings        map[uint]*models.Rating
	reservations   map[uint]*models.Reservation
	events         map[uint]*models.ReservationEvent

	seq sequences
}

type sequences struct {
	book, category, file, rating, reservation, event uint
}

func newStore() *store {
	return &store{
		users:          make(map[string]*models.User),
		books:          make(map[uint]*models.Book),
		bookCategories: make(map[uint]map[uint]bool),
		categories:     make(map[uint]*models.Category),
		files:          make(map[uint]*models.File),
		ratings:        make(map[uint]*models.Rating),
		reservations:   make(map[uint]*models.Reservation),
		events:         make(map[uint]*models.ReservationEvent),
	}
}

// snapshot copies every table; rows are copied by value
func (s *store) snapshot() *store {
	c := newStore()
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range s.books {
		c.books[k] = copyBook(v)
	}
	for k, v := range s.bookCategories {
		set := make(map[uint]bool, len(v))
		for id := range v {
			set[id] = true
		}
		c.bookCategories[k] = set
	}
	for k, v := range s.categories {
		cat := *v
		c.categories[k] = &cat
	}
	for k, v := range s.files {
		f := *v
		c.files[k] = &f
	}
	for k, v := range s.ratings {
		c.ratings[k] = copyRating(v)
	}
	for k, v := range s.reservations {
		c.reservations[k] = copyReservation(v)
	}
	for k, v := range s.events {
		e := *v
		c.events[k] = &e
	}
	c.seq = s.seq
	return c
}

func (s *store) restore(from *store) {
	s.users = from.users
	s.books = from.books
	s.bookCategories = from.bookCategories
	s.categories = from.categories
	s.files = from.files
	s.ratings = from.ratings
	s.reservations = from.reservations
	s.events = from.events
	s.seq = from.seq
}

// Repository implements repositories.Repository in memory
type Repository struct {
	s    *store
	inTx bool
}

// NewRepository returns an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{s: newStore()}
}

// lock acquires the store mutex unless the caller already holds it through a transaction
func (r *Repository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *Repository) User() repositories.UserRepository               { return &userRepo{r} }
func (r *Repository) Book() repositories.BookRepository               { return &bookRepo{r} }
func (r *Repository) Category() repositories.CategoryRepository       { return &categoryRepo{r} }
func (r *Repository) File() repositories.FileRepository               { return &fileRepo{r} }
func (r *Repository) Rating() repositories.RatingRepository           { return &ratingRepo{r} }
func (r *Repository) Reservation() repositories.ReservationRepository { return &reservationRepo{r} }
func (r *Repository) Dashboard() repositories.DashboardRepository     { return &dashboardRepo{r} }

// WithTransaction runs fn holding the store lock and rolls back on error
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.inTx {
		return fn(r)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	snap := r.s.snapshot()
	if err := fn(&Repository{s: r.s, inTx: true}); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repository) Close() error {
	return nil
}

// RepositoryManager wraps a memory Repository for the service bootstrap
type RepositoryManager struct {
	repo *Repository
}

func NewRepositoryManager() repositories.RepositoryManager {
	return &RepositoryManager{}
}

func (rm *RepositoryManager) Initialize() error {
	rm.repo = NewRepository()
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	return rm.repo.Close()
}

func now() time.Time {
	return time.Now().UTC()
}

func copyBook(b *models.Book) *models.Book {
	c := *b
	c.Categories = nil
	c.Files = nil
	return &c
}

func copyRating(r *models.Rating) *models.Rating {
	c := *r
	c.User = nil
	c.Book = nil
	return &c
}

func copyReservation(r *models.Reservation) *models.Reservation {
	c := *r
	c.User = nil
	c.Book = nil
	c.Handler = nil
	return &c
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
