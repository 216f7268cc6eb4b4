// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meme-workers/pkg/registry"
)

var registryPath string

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	// Export command flags
	exportCmd.StringVar(&registryPath, "path", "configs/tool-registry.json", "Path to registry file")
	force := exportCmd.Bool("force", false, "Overwrite an existing registry file")

	// Update command flags
	updateCmd.StringVar(&registryPath, "path", "configs/tool-registry.json", "Path to registry file")
	name := updateCmd.String("name", "", "Tool name (e.g., generate_meme)")
	field := updateCmd.String("field", "", "Field to update (title, description, timeout, tags)")
	value := updateCmd.String("value", "", "New value for the field")

	// Validate command flags
	validateCmd.StringVar(&registryPath, "path", "configs/tool-registry.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		if _, err := os.Stat(registryPath); err == nil && !*force {
			fmt.Printf("Error: %s exists, pass -force to overwrite.\n", registryPath)
			os.Exit(1)
		}
		reg := registry.Default()
		reg.LastUpdated = time.Now().Format(time.RFC3339)
		if err := saveRegistry(reg, registryPath); err != nil {
			fmt.Printf("Error exporting registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d tools to %s\n", len(reg.Tools), registryPath)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *name == "" || *field == "" || *value == "" {
			fmt.Println("Error: name, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateTool(*name, *field, *value); err != nil {
			fmt.Printf("Error updating tool: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated tool %s, field %s to %s\n", *name, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d tools.\n", len(reg.Tools))

	case "help":
		fallthrough
	default:
		help()
	}
}

func updateTool(name, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Tools {
		if reg.Tools[i].Name != name {
			continue
		}
		found = true
		switch field {
		case "title":
			reg.Tools[i].Title = value
		case "description":
			reg.Tools[i].Description = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout value: %w", err)
			}
			reg.Tools[i].Timeout = value
		case "tags":
			reg.Tools[i].Tags = strings.Split(value, ",")
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("tool %s not found", name)
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return saveRegistry(reg, registryPath)
}

// saveRegistry validates reg and writes it to path.
func saveRegistry(reg *registry.ToolRegistry, path string) error {
	if err := reg.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}

	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  export   Write the built-in tool registry to a file
  update   Update an existing tool's field
  validate Validate the registry file
  help     Show this help message

Examples:
  registry-updater export -path configs/tool-registry.json
  registry-updater update -name generate_meme -field timeout -value 90s
  registry-updater validate -path configs/tool-registry.json

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
