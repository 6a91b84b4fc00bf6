// Package sqlitepath resolves the on-disk location of the shelf SQLite
// database shared by the serve, ingest, and reembed commands.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/foliohq/shelf/pkg/dotdir"
)

const dbFileName = "shelf.db"

// Resolve returns the SQLite database path to use.
// Order of precedence:
//  1. Provided override (flag or config value)
//  2. SHELF_SQLITE environment variable
//  3. An existing database in a known candidate location
//  4. The resolved .shelf/ directory (created if needed)
func Resolve(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("SHELF_SQLITE")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range candidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving database location: %w", err)
	}
	if target == "" {
		return "", fmt.Errorf("could not resolve a .shelf/ directory; pass --sqlite")
	}

	return filepath.Join(target, dbFileName), nil
}

func candidates() []string {
	paths := []string{
		dbFileName,
		filepath.Join(".shelf", dbFileName),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(home, ".shelf", dbFileName))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		paths = append([]string{filepath.Join(xdgHome, "shelf", dbFileName)}, paths...)
	}

	return paths
}
