package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

var (
	databaseURL   = flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to DATABASE_URL)")
	migrationsDir = flag.String("migrations-dir", "./migrations", "Directory holding the .sql migration files")
	dryRun        = flag.Bool("dry-run", false, "List the migrations that would run without executing them")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("KeyCortex Database Migration Tool")
	log.Println("=================================")

	if *databaseURL == "" && !*dryRun {
		log.Fatal("No database URL. Set DATABASE_URL or pass --database-url.")
	}

	files, err := migrationFiles(*migrationsDir)
	if err != nil {
		log.Fatalf("Failed to read migrations: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("No .sql files found in %s", *migrationsDir)
	}

	log.Printf("Migrations directory: %s", *migrationsDir)
	log.Printf("Dry run: %v", *dryRun)

	if *dryRun {
		log.Println("\n[DRY RUN] Would apply in order:")
		for i, name := range files {
			log.Printf("  %d. %s", i+1, name)
		}
		log.Println("\nDry run completed. No changes made.")
		log.Println("Run without --dry-run to apply.")
		return
	}

	db, err := sql.Open("postgres", *databaseURL)
	if err != nil {
		log.Fatalf("Failed to open Postgres pool: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	applied, err := apply(db, *migrationsDir, files)
	if err != nil {
		log.Fatalf("Migration failed after %d file(s): %v", applied, err)
	}

	log.Printf("\n✓ Applied %d migration(s) successfully!", applied)
	log.Println("Migrations are idempotent; re-running this tool is safe.")
}

// migrationFiles returns the .sql files of dir in lexicographic order,
// matching the order the server applies them at startup
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

func apply(db *sql.DB, dir string, files []string) (int, error) {
	applied := 0
	for _, name := range files {
		path := filepath.Join(dir, name)
		script, err := os.ReadFile(path)
		if err != nil {
			return applied, fmt.Errorf("failed to read %s: %w", path, err)
		}

		if _, err := db.Exec(string(script)); err != nil {
			return applied, fmt.Errorf("failed to execute %s: %w", path, err)
		}

		applied++
		log.Printf("✓ %s", name)
	}
	return applied, nil
}
