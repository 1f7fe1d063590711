package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/DanielBergThomsen/tentahjalpen/internal/config"
	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/moderate"
	"github.com/DanielBergThomsen/tentahjalpen/internal/storage"
	"github.com/DanielBergThomsen/tentahjalpen/internal/worker"
	"github.com/DanielBergThomsen/tentahjalpen/pkg/errors"
)

const helpText = `Available commands:
init FILENAME: initialize tables using the given SQL file (destructive)
list: print table of exam suggestions in database
ingest: run one statistics ingestion cycle now
show ID: dump suggestion PDF to a temp file
remove ID: remove entry with the given ID
remove_all: remove all entries
approve ID: approve entry with the given ID
approve_all: approve all entries
quit: exit`

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// keep structured logs out of the interactive session unless asked for
	logger.Init("error", cfg.Logging.Format)

	database, err := db.NewConnection(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	repo := db.NewRepository(database)
	moderator := moderate.NewModerator(repo)

	fmt.Println("Issue 'help' to print a list of commands")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(">")
		if !scanner.Scan() {
			return
		}

		fields := splitCommand(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		ctx := context.Background()

		switch {
		case len(fields) == 1 && fields[0] == "help":
			fmt.Println(helpText)

		case len(fields) == 1 && (fields[0] == "quit" || fields[0] == "exit"):
			return

		case len(fields) == 2 && fields[0] == "init":
			if err := db.InitSchema(ctx, database, fields[1]); err != nil {
				fmt.Printf("Initialization failed: %v\n", err)
			} else {
				fmt.Println("Database initialized")
			}

		case len(fields) == 1 && fields[0] == "list":
			listSuggestions(ctx, moderator)

		case len(fields) == 1 && fields[0] == "ingest":
			runIngestion(ctx, cfg, repo)

		case len(fields) == 1 && fields[0] == "remove_all":
			removed, err := moderator.RemoveAll(ctx)
			if err != nil {
				fmt.Printf("Removal failed: %v\n", err)
				continue
			}
			fmt.Printf("Removed %d exam suggestions from database\n", removed)

		case len(fields) == 1 && fields[0] == "approve_all":
			approved, err := moderator.ApproveAll(ctx)
			if err != nil {
				fmt.Printf("Approval failed: %v\n", err)
				continue
			}
			fmt.Printf("Added %d exams to database\n", approved)

		case len(fields) == 2 && fields[0] == "remove":
			withID(fields[1], func(id int64) {
				entry, err := moderator.Remove(ctx, id)
				if err == errors.ErrSuggestionNotFound {
					fmt.Println("Entry not in database")
					return
				}
				if err != nil {
					fmt.Printf("Removal failed: %v\n", err)
					return
				}
				fmt.Printf("Removed %s %s id=%d from database\n", entry.Code, entry.Taken, id)
			})

		case len(fields) == 2 && fields[0] == "approve":
			withID(fields[1], func(id int64) {
				entry, err := moderator.Approve(ctx, id)
				if err == errors.ErrSuggestionNotFound {
					fmt.Println("Entry not in database")
					return
				}
				if err != nil {
					fmt.Printf("Approval failed: %v\n", err)
					return
				}
				fmt.Printf("Added %s taken on %s to database\n", entry.Code, entry.Taken)
			})

		case len(fields) == 2 && fields[0] == "show":
			withID(fields[1], func(id int64) {
				path, err := moderator.Show(ctx, id)
				if err == errors.ErrSuggestionNotFound {
					fmt.Println("Entry not in database")
					return
				}
				if err != nil {
					fmt.Printf("Show failed: %v\n", err)
					return
				}
				fmt.Printf("Wrote PDF to %s\n", path)
			})

		default:
			fmt.Println("Unknown command")
		}
	}
}

func listSuggestions(ctx context.Context, moderator *moderate.Moderator) {
	suggestions, err := moderator.List(ctx)
	if err != nil {
		fmt.Printf("Listing failed: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Type\tCode\tTaken\tID")
	for i := range suggestions {
		s := &suggestions[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.Kind(), s.Code, s.Taken, s.ID)
	}
	w.Flush()
}

func runIngestion(ctx context.Context, cfg *config.Config, repo db.Repository) {
	store, err := storage.New(cfg)
	if err != nil {
		fmt.Printf("Storage initialization failed: %v\n", err)
		return
	}

	fmt.Println("Ingesting statistics...")
	if err := worker.NewIngestWorker(cfg, repo, store).RunOnce(ctx); err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		return
	}
	fmt.Println("Done")
}

func withID(field string, fn func(int64)) {
	id, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		fmt.Println("Invalid ID")
		return
	}
	fn(id)
}

func splitCommand(line string) []string {
	return strings.Fields(line)
}
