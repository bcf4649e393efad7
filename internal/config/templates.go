package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Closing Journal Configuration

[storage]
# SQLite database file. Empty uses journal.db in this directory.
db_path = ""

[report]
# Where the static daily report is published
base_url = "http://localhost:8787"
path = "reports/today.json"
# Number of auto candidates shown
max_items = 20
timeout = "15s"

[offline]
# Cache-first offline copy of the app shell and report
enabled = true
# Bump to evict every previously cached entry
cache_version = "closing-trade-pwa-v1"
# Empty uses report.base_url
origin = ""
assets = [
  "./",
  "./index.html",
  "./manifest.webmanifest",
  "./assets/css/app.css",
  "./assets/js/app.js",
  "./assets/js/db.js",
  "./reports/today.json",
]

[server]
addr = ":8787"
# Directory with index.html, assets/ and reports/
static_dir = ""

[ui]
# Calendar used for "today"
timezone = "Asia/Seoul"
color_enabled = true

[log]
level = "info"
file = true
file_path = ""
max_size = 20
max_backups = 5
max_age = 30
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
