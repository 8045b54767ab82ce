// Command userplan grants or revokes paid access directly in the database.
// It exists for support cases where a payment was confirmed out of band or a
// webhook was permanently lost.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

func main() {
	var (
		idFlag     string
		emailFlag  string
		planFlag   string
		revokeFlag bool
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to update")
	flag.StringVar(&planFlag, "plan", "standard", "plan to grant (standard, pro)")
	flag.BoolVar(&revokeFlag, "revoke", false, "revoke paid access instead of granting it")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	plan := strings.TrimSpace(strings.ToLower(planFlag))

	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if !revokeFlag && !domain.ValidPlan(plan) {
		exitWithError(fmt.Errorf("unsupported plan %q", plan))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	if userID == "" {
		lookupCtx, cancelLookup := context.WithTimeout(context.Background(), 5*time.Second)
		row := runner.QueryRow(lookupCtx, sqlinline.QSelectUserByEmail, email)
		var (
			id, userEmail, passwordHash, tier                   string
			name, pendingPlan, customerID, subscriptionID, stat *string
			paidAt                                              *time.Time
			claimsUsed, claimsRemaining                         int
			createdAt, updatedAt                                time.Time
		)
		err := row.Scan(&id, &userEmail, &name, &passwordHash, &tier, &pendingPlan, &paidAt,
			&customerID, &subscriptionID, &stat, &claimsUsed, &claimsRemaining, &createdAt, &updatedAt)
		cancelLookup()
		if err != nil {
			exitWithError(fmt.Errorf("failed to load user: %w", err))
		}
		userID = id
	}

	updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelUpdate()

	if revokeFlag {
		tag, err := runner.Exec(updateCtx, sqlinline.QMarkUserUnpaid, userID)
		if err != nil {
			exitWithError(fmt.Errorf("failed to revoke access: %w", err))
		}
		if tag.RowsAffected() == 0 {
			exitWithError(fmt.Errorf("no user with id %s", userID))
		}
		fmt.Printf("User %s reverted to unpaid standard\n", userID)
		return
	}

	row := runner.QueryRow(updateCtx, sqlinline.QManualGrantPlan, userID, plan, domain.AllowanceForPlan(domain.Plan(plan)))
	var (
		updatedID       string
		updatedEmail    string
		updatedTier     string
		claimsRemaining int
	)
	if err := row.Scan(&updatedID, &updatedEmail, &updatedTier, &claimsRemaining); err != nil {
		exitWithError(fmt.Errorf("failed to grant plan: %w", err))
	}

	fmt.Printf("User %s (%s) granted plan %s\n", updatedID, updatedEmail, updatedTier)
	fmt.Printf("claims_remaining=%d\n", claimsRemaining)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
