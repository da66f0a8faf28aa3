package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/asaidimu/go-dalmatiner/core"
	"github.com/asaidimu/go-dalmatiner/core/executor"
	"github.com/asaidimu/go-dalmatiner/core/query"
	"github.com/asaidimu/go-dalmatiner/sqlite"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const defaultHistoryDB = "history.db"

func main() {
	dbFileName := os.Getenv("DALMATINER_HISTORY_DB")
	if dbFileName == "" {
		dbFileName = defaultHistoryDB
	}

	db, err := sql.Open("sqlite3", dbFileName)
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	defer func() {
		if cErr := db.Close(); cErr != nil {
			log.Printf("Error closing database connection: %v", cErr)
		}
	}()

	ctx := context.Background()
	history := sqlite.NewHistoryStore(db, nil)
	if err := history.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize history: %v", err)
	}

	// No network transport here: print what would be sent.
	transport := core.TransportFunc(func(ctx context.Context, q string) ([]byte, error) {
		fmt.Println(q)
		return []byte("{}"), nil
	})

	exec, err := executor.NewExecutor(transport, executor.WithHistory(history))
	if err != nil {
		log.Fatalf("Failed to initialize executor: %v", err)
	}

	exec.RegisterSubscription(core.RegisterSubscriptionOptions{
		Event: core.QueryRenderFailed,
		Callback: func(ctx context.Context, event core.QueryEvent) error {
			fmt.Printf("Query %s could not be rendered: %s\n", event.QueryID, *event.Error)
			return nil
		},
	})

	host := query.Equals(query.Key("host"), "web-1")
	dc := query.Equals(query.Path("tag", "dc"), "eu-west")

	qb := query.NewQueryBuilder().
		From("servers").
		Select("cpu", "usage").
		Apply("avg", "$interval").
		Apply("derivate").
		Select("memory", "free").
		With("interval", 30*time.Second).
		Where(host.And(dc)).
		BeginningAt("now-1h").
		EndingAt("now")

	if _, err := exec.Execute(ctx, qb); err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	recent, err := exec.History(ctx, 5)
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}
	fmt.Println("-------------------------------------------------------------------")
	fmt.Printf("%-38s %-15s %s\n", "ID", "Collection", "Rendered at")
	fmt.Println("-------------------------------------------------------------------")
	for _, entry := range recent {
		fmt.Printf("%-38s %-15s %s\n", entry.ID, entry.Collection, time.UnixMilli(entry.RenderedAt).Format(time.RFC3339))
	}
}
