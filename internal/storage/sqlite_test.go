package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteUserLifecycle(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	users := store.Users()

	u := core.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		Phone:        "5551234567",
		PasswordHash: "hash-1",
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := users.Create(ctx, u); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate create: got %v, want ErrEmailTaken", err)
	}

	got, err := users.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Alice" || got.PasswordHash != "hash-1" {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, u.CreatedAt)
	}

	if err := users.UpdatePasswordHash(ctx, "alice@example.com", "hash-2"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, _ = users.Get(ctx, "alice@example.com")
	if got.PasswordHash != "hash-2" {
		t.Errorf("hash = %q after update", got.PasswordHash)
	}

	if err := users.UpdatePasswordHash(ctx, "ghost@example.com", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("update unknown user: got %v", err)
	}
	if _, err := users.Get(ctx, "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get unknown user: got %v", err)
	}
}

func TestSQLiteTransactionIDsNeverReused(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	repo := store.Transactions()
	const email = "alice@example.com"

	for i := 1; i <= 3; i++ {
		got, err := repo.Add(ctx, email, core.Transaction{
			Type: core.Expense, Amount: core.Money{Cents: int64(i) * 100}, Category: "food", Date: "2026-08-30",
		})
		if err != nil {
			t.Fatalf("Add #%d: %v", i, err)
		}
		if got.ID != int64(i) {
			t.Errorf("id = %d, want %d", got.ID, i)
		}
	}

	if err := repo.Delete(ctx, email, 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, email, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v", err)
	}

	got, err := repo.Add(ctx, email, core.Transaction{
		Type: core.Income, Amount: core.Money{Cents: 500}, Date: "2026-08-30",
	})
	if err != nil {
		t.Fatalf("Add after delete: %v", err)
	}
	if got.ID != 4 {
		t.Errorf("id after delete = %d, want 4 (freed ids stay retired)", got.ID)
	}

	list, err := repo.List(ctx, email)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("list has %d entries, want 3", len(list))
	}
}

func TestSQLitePerUserIsolation(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	repo := store.Transactions()

	if _, err := repo.Add(ctx, "alice@example.com", core.Transaction{
		Type: core.Income, Amount: core.Money{Cents: 100}, Date: "2026-08-30",
	}); err != nil {
		t.Fatal(err)
	}

	bobFirst, err := repo.Add(ctx, "bob@example.com", core.Transaction{
		Type: core.Income, Amount: core.Money{Cents: 200}, Date: "2026-08-30",
	})
	if err != nil {
		t.Fatal(err)
	}
	if bobFirst.ID != 1 {
		t.Errorf("counters must be per user, bob's first id = %d", bobFirst.ID)
	}

	if err := repo.Delete(ctx, "bob@example.com", 1); err != nil {
		t.Fatal(err)
	}
	list, _ := repo.List(ctx, "alice@example.com")
	if len(list) != 1 {
		t.Errorf("bob's delete touched alice's ledger: %d entries", len(list))
	}
}

func TestSQLiteBudgetUniqueness(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	repo := store.Budgets()
	const email = "alice@example.com"

	b, err := repo.Add(ctx, email, core.Budget{Category: "food", Limit: core.Money{Cents: 20000}, Month: "2026-08"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if b.ID != 1 {
		t.Errorf("id = %d", b.ID)
	}

	if _, err := repo.Add(ctx, email, core.Budget{Category: "food", Limit: core.Money{Cents: 30000}, Month: "2026-08"}); !errors.Is(err, ErrDuplicateBudget) {
		t.Errorf("same category and month: got %v", err)
	}
	if _, err := repo.Add(ctx, email, core.Budget{Category: "food", Limit: core.Money{Cents: 30000}, Month: "2026-09"}); err != nil {
		t.Errorf("same category, next month: %v", err)
	}
	if _, err := repo.Add(ctx, "bob@example.com", core.Budget{Category: "food", Limit: core.Money{Cents: 100}, Month: "2026-08"}); err != nil {
		t.Errorf("same pair for another user: %v", err)
	}
}

func TestSQLiteResetCodeOverwrite(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	repo := store.ResetCodes()
	const email = "alice@example.com"

	expiry := time.Now().Add(10 * time.Minute).UTC()
	if err := repo.Put(ctx, email, core.ResetCode{Code: "111111", ExpiresAt: expiry, Phone: "5551234567"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Put(ctx, email, core.ResetCode{Code: "222222", ExpiresAt: expiry, Phone: "5551234567"}); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	got, err := repo.Get(ctx, email)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Code != "222222" {
		t.Errorf("code = %q, a later request must replace the earlier code", got.Code)
	}
	if !got.ExpiresAt.Equal(expiry) {
		t.Errorf("expires_at = %v, want %v", got.ExpiresAt, expiry)
	}

	if err := repo.Delete(ctx, email); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, email); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: got %v", err)
	}
	// Delete is idempotent.
	if err := repo.Delete(ctx, email); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
