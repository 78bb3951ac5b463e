package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"randomcall/backend/internal/callhub"
	"randomcall/backend/internal/config"
	"randomcall/backend/internal/models"
	"randomcall/backend/internal/storage"

	"github.com/redis/go-redis/v9"
)

// busNotifier publishes admin events straight to Redis so that the instance
// holding the websocket delivers them.
type busNotifier struct {
	bus storage.EventBus
}

func (n busNotifier) Notify(ctx context.Context, ev models.CallEvent) error {
	return n.bus.PublishEvent(ctx, ev)
}

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  sweep              remove stale waiting entries")
	fmt.Println("  list-waiting       show the waiting pool")
	fmt.Println("  list-calls         show active calls")
	fmt.Println("  end-call <call_id> end a call as a moderator")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// JWT_SECRET для CLI не потрібен
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "admin-cli")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := storage.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
	}
	storageSvc := storage.NewStorageService(db, rdb)

	coordinator := callhub.NewCoordinator(storageSvc, cfg.Matchmaking, nil)
	if rdb != nil {
		coordinator.SetNotifier(busNotifier{bus: storageSvc})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch command := os.Args[1]; command {
	case "sweep":
		n, err := coordinator.SweepOnce(ctx)
		if err != nil {
			log.Fatalf("Error sweeping waiting entries: %v", err)
		}
		fmt.Printf("Removed %d stale waiting entries.\n", n)

	case "list-waiting":
		entries, err := storageSvc.FindWaitingCandidates(ctx, models.CandidateFilter{}, 0)
		if err != nil {
			log.Fatalf("Error listing waiting entries: %v", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "USER\tNAME\tGENDER\tCALL\tWAITING")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.UserID, e.Username, e.Gender, e.CallID, time.Since(e.CreatedAt).Round(time.Second))
		}
		w.Flush()

	case "list-calls":
		calls, err := storageSvc.ListActiveCalls(ctx)
		if err != nil {
			log.Fatalf("Error listing calls: %v", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CALL\tUSER1\tUSER2\tDURATION")
		for _, c := range calls {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.CallID, c.User1ID, c.User2ID, time.Since(c.CreatedAt).Round(time.Second))
		}
		w.Flush()

	case "end-call":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin end-call <call_id>")
			os.Exit(1)
		}
		callID := os.Args[2]
		session, err := storageSvc.FindActiveCall(ctx, callID)
		if err != nil {
			log.Fatalf("Error loading call: %v", err)
		}
		if session == nil {
			fmt.Printf("Call %s not found.\n", callID)
			os.Exit(1)
		}
		if _, err := coordinator.EndCall(ctx, callID, "", models.EndReasonAdminEnded); err != nil {
			log.Fatalf("Error ending call: %v", err)
		}
		fmt.Printf("Call %s has been ended.\n", callID)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}
