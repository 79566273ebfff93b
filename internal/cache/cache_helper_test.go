package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedBook struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheHelper_GetSet(t *testing.T) {
	mr, client := newTestClient(t)
	helper := NewCacheHelper(client, BookCacheConfig.Prefix)
	ctx := context.Background()

	if err := helper.Set(ctx, BookKey(1), cachedBook{ID: 1, Title: "1984"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("book:id:1") {
		t.Fatalf("expected key book:id:1 to exist, keys = %v", mr.Keys())
	}

	var got cachedBook
	if err := helper.Get(ctx, BookKey(1), &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "1984" {
		t.Errorf("Get() title = %q, want %q", got.Title, "1984")
	}

	mr.FastForward(2 * time.Minute)
	if err := helper.Get(ctx, BookKey(1), &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get() after ttl error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_NilClient(t *testing.T) {
	helper := NewCacheHelper(nil, "book:")
	ctx := context.Background()

	if helper.Enabled() {
		t.Fatal("helper without client must be disabled")
	}
	if err := helper.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Errorf("Set() error = %v, want nil", err)
	}
	var v int
	if err := helper.Get(ctx, "k", &v); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get() error = %v, want ErrCacheNotAvailable", err)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	_, client := newTestClient(t)
	helper := NewCacheHelper(client, RatingCacheConfig.Prefix)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedBook{ID: 7, Title: "Dune"}, nil
	}

	for i := 0; i < 3; i++ {
		var got cachedBook
		if err := helper.CacheOrExecute(ctx, "summary:7", &got, time.Minute, fetch); err != nil {
			t.Fatalf("CacheOrExecute() error = %v", err)
		}
		if got.ID != 7 {
			t.Fatalf("CacheOrExecute() id = %d, want 7", got.ID)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}

	fetchErr := errors.New("boom")
	var got cachedBook
	err := helper.CacheOrExecute(ctx, "summary:8", &got, time.Minute, func() (interface{}, error) {
		return nil, fetchErr
	})
	if !errors.Is(err, fetchErr) {
		t.Errorf("CacheOrExecute() error = %v, want %v", err, fetchErr)
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	mr, client := newTestClient(t)
	helper := NewCacheHelper(client, BookCacheConfig.Prefix)
	ctx := context.Background()

	for i := uint(1); i <= 150; i++ {
		if err := helper.Set(ctx, BookKey(i), i, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	_ = mr.Set("rating:summary:1", "x")

	if err := helper.InvalidatePattern(ctx, "id:*"); err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "rating:summary:1" {
		t.Errorf("remaining keys = %v, want only rating:summary:1", keys)
	}
}

func TestInvalidator_Deferred(t *testing.T) {
	mr, client := newTestClient(t)
	cm := NewCacheManager(client)
	ctx := context.Background()

	_ = cm.Book.Set(ctx, BookKey(3), 3, time.Minute)

	inv := NewDeferredInvalidator()
	inv.Delete(ctx, cm.Book, BookKey(3))
	if !mr.Exists("book:id:3") {
		t.Fatal("deferred delete must not run before Flush")
	}

	inv.Flush(ctx)
	if mr.Exists("book:id:3") {
		t.Fatal("Flush must delete queued keys")
	}

	_ = cm.Book.Set(ctx, BookKey(4), 4, time.Minute)
	inv.Delete(ctx, cm.Book, BookKey(4))
	inv.Discard()
	inv.Flush(ctx)
	if !mr.Exists("book:id:4") {
		t.Fatal("Discard must drop queued keys")
	}

	NewImmediateInvalidator().Delete(ctx, cm.Book, BookKey(4))
	if mr.Exists("book:id:4") {
		t.Fatal("immediate invalidator must delete at once")
	}
}
