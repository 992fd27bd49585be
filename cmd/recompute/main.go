package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Batch repair job: replays the stock movement log and rewrites drifted
// average costs and quantities. Safe to rerun; already-correct records are
// left untouched. SIGINT/SIGTERM stops gracefully between products.
func main() {
	productFlag := flag.String("product", "", "recompute a single product by ID")
	storeFlag := flag.String("store", "", "recompute a single store by ID")
	flag.Parse()

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	// 2. Setup Database
	db := database.ConnectDB()

	inventoryRepo := repository.NewInventoryRepo(db)
	movementRepo := repository.NewMovementRepo(db)
	costingService := service.NewCostingService(inventoryRepo, movementRepo, db)

	// 3. Cancel between products on interrupt; the in-flight transaction
	// always finishes first.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	progress := func(productID uuid.UUID, processed, total int, itemErr error) {
		if itemErr != nil {
			log.Printf("[%d/%d] product %s: FAILED: %v", processed, total, productID, itemErr)
			return
		}
		log.Printf("[%d/%d] product %s: ok", processed, total, productID)
	}

	var summary *service.RecomputeSummary
	var err error
	switch {
	case *productFlag != "":
		productID, parseErr := uuid.Parse(*productFlag)
		if parseErr != nil {
			log.Fatalf("Invalid product ID %q: %v", *productFlag, parseErr)
		}
		summary, err = costingService.RecomputeForProduct(ctx, productID)
	case *storeFlag != "":
		storeID, parseErr := uuid.Parse(*storeFlag)
		if parseErr != nil {
			log.Fatalf("Invalid store ID %q: %v", *storeFlag, parseErr)
		}
		summary, err = costingService.RecomputeForStore(ctx, storeID)
	default:
		summary, err = costingService.RecomputeAll(ctx, progress)
	}
	if err != nil {
		log.Fatalf("Recompute aborted: %v", err)
	}

	// 4. Final tally
	log.Printf("Recompute finished: %d processed, %d succeeded, %d failed",
		summary.Processed, summary.Succeeded, summary.Failed)
	for _, failure := range summary.Failures {
		log.Printf("  failed: %v", failure)
	}
	if summary.Stopped {
		log.Println("Run stopped early by signal; rerun to finish the remainder")
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
