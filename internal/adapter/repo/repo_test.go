package repo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"server/internal/domain"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// fakeExec records the last statement and returns canned results.
type fakeExec struct {
	execTag   pgconn.CommandTag
	execErr   error
	row       fakeRow
	lastQuery string
	lastArgs  []any
}

func (f *fakeExec) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.lastQuery = query
	f.lastArgs = args
	return f.execTag, f.execErr
}

func (f *fakeExec) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	f.lastQuery = query
	f.lastArgs = args
	return f.row
}

func (f *fakeExec) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func setString(dest any, v string) {
	*(dest.(*string)) = v
}

// scanUserInto fills the full user column list with a minimal valid row.
func scanUserInto(id, email string) func(dest ...any) error {
	return func(dest ...any) error {
		now := time.Now()
		setString(dest[0], id)
		setString(dest[1], email)
		setString(dest[3], "hash")
		setString(dest[4], "standard")
		*(dest[10].(*int)) = 0
		*(dest[11].(*int)) = 1
		*(dest[12].(*time.Time)) = now
		*(dest[13].(*time.Time)) = now
		return nil
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	exec := &fakeExec{}
	repo := NewUserRepository(exec)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserGetByIDScansRow(t *testing.T) {
	exec := &fakeExec{row: fakeRow{scan: scanUserInto("user-1", "a@example.com")}}
	repo := NewUserRepository(exec)

	user, err := repo.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if user.ID != "user-1" || user.Email != "a@example.com" {
		t.Fatalf("user = %+v", user)
	}
	if user.Tier != domain.PlanStandard {
		t.Fatalf("tier = %q, want standard", user.Tier)
	}
	if user.Paid() {
		t.Fatalf("user with null paid_at must not be paid")
	}
}

func TestUserCreateMapsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	exec := &fakeExec{row: fakeRow{scan: func(...any) error { return pgErr }}}
	repo := NewUserRepository(exec)

	_, err := repo.Create(context.Background(), &domain.User{Email: "dup@example.com", PasswordHash: "x"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestUserMarkPaidNoRowIsNotFound(t *testing.T) {
	exec := &fakeExec{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := NewUserRepository(exec)

	err := repo.MarkPaid(context.Background(), "missing", domain.PaymentConfirmation{
		Plan:   domain.PlanPro,
		PaidAt: time.Now(),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserMarkPaidPassesAllowance(t *testing.T) {
	exec := &fakeExec{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewUserRepository(exec)

	err := repo.MarkPaid(context.Background(), "user-1", domain.PaymentConfirmation{
		Plan:           domain.PlanPro,
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		PaidAt:         time.Now(),
	})
	if err != nil {
		t.Fatalf("MarkPaid() error: %v", err)
	}
	// args: id, plan, paid_at, customer, subscription, allowance, name
	if got := exec.lastArgs[5].(int); got != domain.ClaimsUnlimited {
		t.Fatalf("allowance arg = %d, want unlimited sentinel", got)
	}
	if got := exec.lastArgs[1].(string); got != "pro" {
		t.Fatalf("plan arg = %q, want pro", got)
	}
}

func TestClaimCreateMapsNoRowToLimit(t *testing.T) {
	exec := &fakeExec{}
	repo := NewClaimRepository(exec)

	_, err := repo.Create(context.Background(), "user-1", "Claim", nil)
	if !errors.Is(err, domain.ErrClaimLimit) {
		t.Fatalf("err = %v, want ErrClaimLimit", err)
	}
}

func TestClaimCreateDefaultsEmptyPayload(t *testing.T) {
	exec := &fakeExec{row: fakeRow{scan: func(dest ...any) error {
		now := time.Now()
		setString(dest[0], "claim-1")
		setString(dest[1], "user-1")
		setString(dest[2], "Claim")
		*(dest[3].(*json.RawMessage)) = json.RawMessage(`{}`)
		setString(dest[4], "draft")
		*(dest[5].(*time.Time)) = now
		*(dest[6].(*time.Time)) = now
		return nil
	}}}
	repo := NewClaimRepository(exec)

	claim, err := repo.Create(context.Background(), "user-1", "Claim", nil)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if string(exec.lastArgs[2].(json.RawMessage)) != "{}" {
		t.Fatalf("payload arg = %q, want {}", exec.lastArgs[2])
	}
	if claim.Status != domain.ClaimStatusDraft {
		t.Fatalf("status = %q, want draft", claim.Status)
	}
}

func TestPreRegGetByEmailHashNotFound(t *testing.T) {
	exec := &fakeExec{}
	repo := NewPreRegRepository(exec)

	_, err := repo.GetByEmailHash(context.Background(), domain.HashEmail("nobody@example.com"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
