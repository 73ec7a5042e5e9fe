package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/deppfellow/iban-manager/internal/model/iban"
	"github.com/deppfellow/iban-manager/internal/sqlerr"
	"github.com/deppfellow/iban-manager/internal/testutil"
)

func newRepo(t *testing.T) *IBANRepository {
	t.Helper()
	cfg := testutil.Config(t)
	return NewIBANRepository(testutil.NewDB(t, cfg).DB)
}

func insert(t *testing.T, repo *IBANRepository, number, bank, holder string, createdAt time.Time) *iban.IBAN {
	t.Helper()
	rec := &iban.IBAN{Number: number, BankName: bank, AccountHolder: holder}
	rec.CreatedAt = createdAt
	rec.UpdatedAt = createdAt
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("create %s: %v", number, err)
	}
	if rec.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	return rec
}

func TestCreateAndGet(t *testing.T) {
	repo := newRepo(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	created := insert(t, repo, "DE89370400440532013000", "Commerzbank", "Max Mustermann", now)

	got, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Number != created.Number || got.BankName != "Commerzbank" || got.Description != "" {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created_at = %s, want %s", got.CreatedAt, now)
	}
}

func TestGetByIDMissing(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.GetByID(context.Background(), 999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListOrderAndSearch(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	de := insert(t, repo, "DE89370400440532013000", "Commerzbank", "Max Mustermann", base)
	gb := insert(t, repo, "GB82WEST12345698765432", "Westminster 100%", "Jane Doe", base.Add(time.Hour))
	no := insert(t, repo, "NO9386011117947", "DNB", "Ola Nordmann", base.Add(time.Hour))

	all, err := repo.List(ctx, iban.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// Newest first, equal timestamps by id descending.
	want := []int64{no.ID, gb.ID, de.ID}
	if len(all) != len(want) {
		t.Fatalf("got %d records, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d: id %d, want %d", i, all[i].ID, id)
		}
	}

	cases := []struct {
		search string
		want   []int64
	}{
		{"commerz", []int64{de.ID}},
		{"JANE", []int64{gb.ID}},
		{"gb82 west", []int64{gb.ID}},
		{"0532 0130", []int64{de.ID}},
		{"100%", []int64{gb.ID}},
		{"_", nil},
		{"nomatch", nil},
		{"   ", want},
	}

	for _, tc := range cases {
		got, err := repo.List(ctx, iban.ListFilter{Search: tc.search})
		if err != nil {
			t.Fatalf("List(%q): %v", tc.search, err)
		}
		if len(got) != len(tc.want) {
			t.Errorf("List(%q) returned %d records, want %d", tc.search, len(got), len(tc.want))
			continue
		}
		for i := range got {
			if got[i].ID != tc.want[i] {
				t.Errorf("List(%q)[%d] = %d, want %d", tc.search, i, got[i].ID, tc.want[i])
			}
		}
	}
}

func TestListSearchFoldsUnicodeAndDescription(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	de := insert(t, repo, "DE89370400440532013000", "Commerzbank", "Max Mustermann", base)
	tr := &iban.IBAN{
		Number:        "TR330006100519786457841326",
		BankName:      "Ziraat Bankası",
		AccountHolder: "AYŞE YILMAZ",
		Description:   "Maaş hesabı",
	}
	tr.CreatedAt = base.Add(time.Hour)
	tr.UpdatedAt = tr.CreatedAt
	if err := repo.Create(ctx, tr); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		search string
		want   []int64
	}{
		{"ayşe", []int64{tr.ID}},
		{"AYŞE", []int64{tr.ID}},
		{"bankası", []int64{tr.ID}},
		{"MAAŞ", []int64{tr.ID}},
		{"hesabı", []int64{tr.ID}},
		{"mustermann", []int64{de.ID}},
	}

	for _, tc := range cases {
		t.Run(tc.search, func(t *testing.T) {
			got, err := repo.List(ctx, iban.ListFilter{Search: tc.search})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("returned %d records, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i].ID != tc.want[i] {
					t.Errorf("[%d] = %d, want %d", i, got[i].ID, tc.want[i])
				}
			}
		})
	}
}

func TestNumberTaken(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	rec := insert(t, repo, "DE89370400440532013000", "Commerzbank", "Max", time.Now().UTC())

	taken, err := repo.NumberTaken(ctx, rec.Number, 0)
	if err != nil || !taken {
		t.Fatalf("NumberTaken = %v, %v; want true", taken, err)
	}

	taken, err = repo.NumberTaken(ctx, rec.Number, rec.ID)
	if err != nil || taken {
		t.Fatalf("NumberTaken excluding owner = %v, %v; want false", taken, err)
	}
}

func TestUniqueIndexRejectsDuplicate(t *testing.T) {
	repo := newRepo(t)
	insert(t, repo, "DE89370400440532013000", "Commerzbank", "Max", time.Now().UTC())

	err := repo.Create(context.Background(), &iban.IBAN{
		Number:        "DE89370400440532013000",
		BankName:      "Other",
		AccountHolder: "Other",
	})
	if !sqlerr.IsUniqueViolation(err) {
		t.Fatalf("expected a unique violation, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	rec := insert(t, repo, "DE89370400440532013000", "Commerzbank", "Max", time.Now().UTC())

	rec.BankName = "Deutsche Bank"
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := repo.GetByID(ctx, rec.ID)
	if got.BankName != "Deutsche Bank" {
		t.Errorf("bank name = %q", got.BankName)
	}

	if err := repo.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, rec.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second Delete = %v, want sql.ErrNoRows", err)
	}
}

func TestInTxRollsBack(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(ctx context.Context, store IBANStore) error {
		rec := &iban.IBAN{Number: "NO9386011117947", BankName: "DNB", AccountHolder: "Ola"}
		if err := store.Create(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx = %v, want boom", err)
	}

	taken, err := repo.NumberTaken(ctx, "NO9386011117947", 0)
	if err != nil || taken {
		t.Fatalf("record survived rollback: taken=%v err=%v", taken, err)
	}
}
