package memory

import (
	"context"
	"errors"
	"testing"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

func testPosition(mint string, buyTime int64) *domain.Position {
	return &domain.Position{
		Time:            buyTime,
		TokenMint:       mint,
		TokenName:       "Test Token",
		Balance:         1000,
		SolPaid:         0.1,
		SolFeePaid:      5000,
		SolPaidUSD:      15.3,
		SolFeePaidUSD:   0.000765,
		PerTokenPaidUSD: 0.0153,
		Slot:            312000000,
		SourceProgram:   "RAYDIUM",
	}
}

func TestPositionStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	p := testPosition("MINT1", 1700000000)
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.GetByMint(ctx, "MINT1")
	if err != nil {
		t.Fatalf("GetByMint: %v", err)
	}
	if *got != *p {
		t.Errorf("got %+v, want %+v", got, p)
	}

	// Returned copy must not alias the stored record.
	got.Balance = 0
	again, _ := store.GetByMint(ctx, "MINT1")
	if again.Balance != 1000 {
		t.Error("store leaked internal pointer")
	}
}

func TestPositionStore_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	if err := store.Insert(ctx, testPosition("MINT1", 1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	err := store.Insert(ctx, testPosition("MINT1", 2))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestPositionStore_InsertInvalid(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil insert: err = %v", err)
	}
	if err := store.Insert(ctx, &domain.Position{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty mint insert: err = %v", err)
	}
}

func TestPositionStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	if err := store.Insert(ctx, testPosition("MINT1", 1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Remove(ctx, "MINT1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.GetByMint(ctx, "MINT1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("after remove: err = %v, want ErrNotFound", err)
	}
	if err := store.Remove(ctx, "MINT1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second remove: err = %v, want ErrNotFound", err)
	}
}

func TestPositionStore_GetAllOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	for _, p := range []*domain.Position{
		testPosition("MINT3", 300),
		testPosition("MINT1", 100),
		testPosition("MINT2", 200),
	} {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, want := range []string{"MINT1", "MINT2", "MINT3"} {
		if all[i].TokenMint != want {
			t.Errorf("all[%d].TokenMint = %s, want %s", i, all[i].TokenMint, want)
		}
	}
}
