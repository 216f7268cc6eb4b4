// cmd/tools/catalog-importer/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"meme-workers/internal/catalog"
	"meme-workers/internal/common/config"
	"meme-workers/internal/common/database"
	httpclient "meme-workers/internal/common/http"
	"meme-workers/internal/models"
)

func main() {
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	fetchCmd := flag.NewFlagSet("fetch", flag.ExitOnError)

	// Import command flags
	from := importCmd.String("from", "file", "Source of records (file, http)")
	importPath := importCmd.String("path", "configs/templates.yaml", "Catalog file when -from=file")
	to := importCmd.String("to", "redis", "Destination (redis, postgres)")

	// Validate command flags
	validatePath := validateCmd.String("path", "configs/templates.yaml", "Catalog file to validate")

	// Fetch command flags
	fetchBase := fetchCmd.String("base", "https://api.memegen.link", "Rendering service base URL")
	fetchOut := fetchCmd.String("out", "configs/templates.json", "Output file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		n, err := importCatalog(ctx, *from, *importPath, *to)
		if err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d templates into %s\n", n, *to)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		cat, err := catalog.Load(ctx, catalog.NewFileSource(*validatePath))
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed: %d templates.\n", cat.Len())

	case "fetch":
		fetchCmd.Parse(os.Args[2:])
		n, err := fetchCatalog(ctx, *fetchBase, *fetchOut)
		if err != nil {
			fmt.Printf("Fetch failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d templates to %s\n", n, *fetchOut)

	case "help":
		fallthrough
	default:
		help()
	}
}

func readSource(ctx context.Context, from, path string, cfg *config.Config) (*catalog.Catalog, error) {
	var src catalog.Source
	switch from {
	case "file":
		src = catalog.NewFileSource(path)
	case "http":
		src = catalog.NewHTTPSource(cfg.APIs.Memegen.BaseURL, httpclient.NewClient(config.GetDuration(cfg.APIs.Memegen.Timeout)))
	default:
		return nil, fmt.Errorf("unknown source %q", from)
	}
	return catalog.Load(ctx, src)
}

func importCatalog(ctx context.Context, from, path, to string) (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load config: %w", err)
	}

	cat, err := readSource(ctx, from, path, cfg)
	if err != nil {
		return 0, err
	}
	records := cat.All()

	switch to {
	case "redis":
		rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return 0, err
		}
		defer rdb.Close()
		if err := catalog.NewRedisSource(rdb, cfg.Catalog.RedisKey).Store(ctx, records); err != nil {
			return 0, err
		}

	case "postgres":
		db, err := database.NewPostgres(ctx, cfg.Database.Postgres)
		if err != nil {
			return 0, err
		}
		defer db.Close()
		src, err := catalog.NewPostgresSource(db, cfg.Catalog.Table)
		if err != nil {
			return 0, err
		}
		if err := src.EnsureSchema(ctx); err != nil {
			return 0, err
		}
		if err := src.Store(ctx, records); err != nil {
			return 0, err
		}

	default:
		return 0, fmt.Errorf("unknown destination %q", to)
	}

	return len(records), nil
}

func fetchCatalog(ctx context.Context, baseURL, out string) (int, error) {
	src := catalog.NewHTTPSource(baseURL, httpclient.NewClient(30*time.Second))
	cat, err := catalog.Load(ctx, src)
	if err != nil {
		return 0, err
	}

	all := cat.All()
	list := make([]models.TemplateRecord, 0, len(all))
	for _, key := range cat.Keys() {
		list = append(list, all[key])
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", out, err)
	}
	return len(list), nil
}

func help() {
	fmt.Println("Usage: catalog-importer <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  import    Load templates from a file or the rendering service into Redis or PostgreSQL")
	fmt.Println("  validate  Check a catalog file against the template rules")
	fmt.Println("  fetch     Download the rendering service's template listing to a JSON file")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'catalog-importer <command> -h' for command flags.")
}
