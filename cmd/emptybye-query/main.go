package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"emptybye/internal/database"
	"emptybye/internal/exitcodes"
)

func main() {
	// Parse command-line flags
	dbPath := flag.String("db", "/var/lib/emptybye/removals.db", "Path to removal database")
	recent := flag.Int("recent", 0, "Show N most recent removal events")
	stats := flag.Bool("stats", false, "Show removal statistics")
	action := flag.String("action", "", "Filter by action (REMOVE, DRY_RUN, SKIP, ERROR)")
	pathPattern := flag.String("path", "", "Filter by path pattern (SQL LIKE syntax)")
	deepest := flag.Int("deepest", 0, "Show N deepest removed directories")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	// Open database
	db, err := database.NewRemovalDB(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	// Handle different query modes
	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *recent > 0:
		showRecent(db, *recent, *jsonOutput)
	case *action != "":
		showByAction(db, *action, *jsonOutput)
	case *pathPattern != "":
		showByPath(db, *pathPattern, *jsonOutput)
	case *deepest > 0:
		showDeepest(db, *deepest, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  emptybye-query --recent 10            # Show 10 most recent removal events")
		fmt.Println("  emptybye-query --stats                # Show removal statistics")
		fmt.Println("  emptybye-query --action REMOVE        # Show only real removals")
		fmt.Println("  emptybye-query --path '/srv/media/%'  # Show removals under /srv/media")
		fmt.Println("  emptybye-query --deepest 10           # Show 10 deepest removed directories")
		os.Exit(exitcodes.InvalidInput)
	}
}

func showStats(db *database.RemovalDB, days int, jsonOutput bool) {
	stats, err := db.GetRemovalStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Removal Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Total Removed:    %d\n", stats.TotalRemoved)
	fmt.Printf("Total Dry Run:    %d\n", stats.TotalDryRun)
	fmt.Printf("Total Skipped:    %d\n", stats.TotalSkipped)
	fmt.Printf("Total Errors:     %d\n\n", stats.TotalErrors)

	if len(stats.ByAction) > 0 {
		fmt.Println("By Action:")
		for action, count := range stats.ByAction {
			fmt.Printf("  %-15s %d\n", action, count)
		}
		fmt.Println()
	}

	if len(stats.ByRoot) > 0 {
		fmt.Println("By Root:")
		for root, count := range stats.ByRoot {
			fmt.Printf("  %-30s %d\n", root, count)
		}
	}
}

func showRecent(db *database.RemovalDB, limit int, jsonOutput bool) {
	records, err := db.GetRecentRemovals(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get recent removals: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	printRecords(records)
}

func showByAction(db *database.RemovalDB, action string, jsonOutput bool) {
	records, err := db.GetRemovalsByAction(action)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by action: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Records with action: %s\n\n", action)
	printRecords(records)
}

func showByPath(db *database.RemovalDB, pathPattern string, jsonOutput bool) {
	records, err := db.GetRemovalsByPath(pathPattern)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by path: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Removals matching path pattern: %s\n\n", pathPattern)
	printRecords(records)
}

func showDeepest(db *database.RemovalDB, limit int, jsonOutput bool) {
	records, err := db.GetDeepestRemovals(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get deepest removals: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Deepest %d removals:\n\n", limit)
	printRecords(records)
}

func printRecords(records []database.RemovalRecord) {
	if len(records) == 0 {
		fmt.Println("No records found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tDepth\tRoot\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t-----\t----\t----")

	for _, r := range records {
		timestamp := r.Timestamp.Format("2006-01-02 15:04:05")
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, timestamp, r.Action, r.Depth, r.Root, r.Path)
	}
	_ = w.Flush()
}
