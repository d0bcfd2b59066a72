// Package monitorconfig loads FilterConfig definitions from either a single
// JSON file or a directory split into monitors/*.json and alerts/*.json,
// per spec.md §6.
//
// Grounded on the teacher's pkg/config/config.go (plain encoding/json
// struct loading, no schema library), generalized from a single
// chains.json document to the spec's two-shape filter configuration
// surface.
package monitorconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

// AlertConfig names a reusable notification destination that monitor files
// reference by name. A non-empty URL resolves to a Webhook action;
// otherwise it resolves to an Alert action against Channel.
type AlertConfig struct {
	Channel  string `json:"channel,omitempty"`
	Severity string `json:"severity,omitempty"`
	URL      string `json:"url,omitempty"`
	Method   string `json:"method,omitempty"`
}

// monitorEntry is one element of a monitors/*.json array: a filter
// definition plus the named alerts it should fan out to.
type monitorEntry struct {
	Filter models.FilterConfig `json:"filter"`
	Alerts []string            `json:"alerts"`
}

// Load reads filter definitions from path. A regular file is parsed as a
// single JSON array of FilterConfig. A directory is parsed as
// monitors/*.json (each an array of monitorEntry) plus alerts/*.json (each
// a string-keyed map of AlertConfig), with each monitor's named alerts
// resolved into synthesized actions appended to its action list.
func Load(path string) ([]models.FilterConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("monitorconfig: stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return loadSingleFile(path)
	}
	return loadDirectory(path)
}

func loadSingleFile(path string) ([]models.FilterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("monitorconfig: read %s: %w", path, err)
	}
	var filters []models.FilterConfig
	if err := json.Unmarshal(data, &filters); err != nil {
		return nil, fmt.Errorf("monitorconfig: parse %s: %w", path, err)
	}
	return filters, nil
}

func loadDirectory(root string) ([]models.FilterConfig, error) {
	alerts, err := loadAlerts(filepath.Join(root, "alerts"))
	if err != nil {
		return nil, err
	}

	monitorFiles, err := sortedJSONFiles(filepath.Join(root, "monitors"))
	if err != nil {
		return nil, err
	}

	var filters []models.FilterConfig
	for _, path := range monitorFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("monitorconfig: read %s: %w", path, err)
		}
		var entries []monitorEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("monitorconfig: parse %s: %w", path, err)
		}
		for _, entry := range entries {
			filters = append(filters, resolveEntry(entry, alerts))
		}
	}
	return filters, nil
}

func loadAlerts(dir string) (map[string]AlertConfig, error) {
	merged := make(map[string]AlertConfig)
	files, err := sortedJSONFiles(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return merged, nil
		}
		return nil, err
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("monitorconfig: read %s: %w", path, err)
		}
		var named map[string]AlertConfig
		if err := json.Unmarshal(data, &named); err != nil {
			return nil, fmt.Errorf("monitorconfig: parse %s: %w", path, err)
		}
		for name, cfg := range named {
			merged[name] = cfg
		}
	}
	return merged, nil
}

func sortedJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// resolveEntry appends one synthesized action per named alert reference to
// the monitor's filter, in the order the alerts list names them.
func resolveEntry(entry monitorEntry, alerts map[string]AlertConfig) models.FilterConfig {
	filter := entry.Filter
	for _, name := range entry.Alerts {
		cfg, ok := alerts[name]
		if !ok {
			continue
		}
		filter.Actions = append(filter.Actions, resolveAlert(cfg))
	}
	return filter
}

func resolveAlert(cfg AlertConfig) models.Action {
	if cfg.URL != "" {
		return models.Action{
			Kind:   models.ActionWebhook,
			URL:    cfg.URL,
			Method: cfg.Method,
		}
	}
	return models.Action{
		Kind:     models.ActionAlert,
		Severity: cfg.Severity,
		Channels: []string{cfg.Channel},
	}
}
