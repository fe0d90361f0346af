package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/atlasbank/ledger/internal/config"
	"github.com/atlasbank/ledger/internal/data/postgres"
	"github.com/atlasbank/ledger/internal/ledger"
	"github.com/atlasbank/ledger/internal/logger"
	"github.com/atlasbank/ledger/internal/platform/persistence"
	"github.com/google/uuid"
)

// seedAccount describes one demo account to create. Opening balances are
// posted as DEPOSIT transactions so the balance always equals the sum of the
// account's ledger entries.
type seedAccount struct {
	accountType    string
	nickname       string
	openingBalance int64 // minor units
}

type seedUser struct {
	name     string
	accounts []seedAccount
}

var demoUsers = []seedUser{
	{
		name: "alice",
		accounts: []seedAccount{
			{accountType: "checking", nickname: "Everyday", openingBalance: 250_000},
			{accountType: "savings", nickname: "Rainy day", openingBalance: 1_000_000},
		},
	},
	{
		name: "bob",
		accounts: []seedAccount{
			{accountType: "checking", openingBalance: 75_000},
		},
	},
}

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall seeding timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg, err := config.LoadConfig("seed")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	ledgerService := ledger.NewService(postgresDB, accountRepo, transactionRepo, outboxRepo, log)

	for _, user := range demoUsers {
		userID := uuid.New()
		log.Info("Seeding demo user", "name", user.name, "user_id", userID.String())

		for _, spec := range user.accounts {
			acc, err := ledgerService.OpenAccount(ctx, userID, spec.accountType)
			if err != nil {
				log.Error("Failed to open seed account", "name", user.name, "type", spec.accountType, "error", err)
				os.Exit(1)
			}

			if spec.nickname != "" {
				if _, err := ledgerService.Rename(ctx, userID, acc.ID, spec.nickname); err != nil {
					log.Error("Failed to set seed account nickname", "account_id", acc.ID.String(), "error", err)
					os.Exit(1)
				}
			}

			if spec.openingBalance > 0 {
				if _, err := ledgerService.Deposit(ctx, userID, acc.ID, spec.openingBalance, "Opening balance"); err != nil {
					log.Error("Failed to post opening balance", "account_id", acc.ID.String(), "error", err)
					os.Exit(1)
				}
			}

			log.Info("Seeded account",
				"name", user.name,
				"user_id", userID.String(),
				"account_id", acc.ID.String(),
				"number", acc.Number,
				"type", spec.accountType,
				"balance", spec.openingBalance,
			)
		}
	}

	log.Info("Seeding completed")
}
