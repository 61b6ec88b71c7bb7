// verify-schema is an operational helper, not part of either binary's
// correctness surface: it ensures the durable store's tables exist before
// cmd/api or cmd/worker are deployed against a fresh database.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/physio/engine/internal/config"
	"github.com/physio/engine/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("verify-schema: no .env file found")
	}

	cfg := config.Get()

	fmt.Println("verify-schema: checking durable store schema")

	st, err := store.Open(cfg.Store.URL, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns, cfg.Store.ConnMaxLifeMin)
	if err != nil {
		log.Fatalf("verify-schema: cannot reach store: %v", err)
	}
	defer st.Close()

	if err := st.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("verify-schema: failed to ensure schema: %v", err)
	}

	fmt.Println("verify-schema: patients, vitals_events, anomalies tables present")
}
