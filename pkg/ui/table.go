package ui

import (
	"github.com/pterm/pterm"
)

// Service represents a service for display in a ServiceTable. Status and
// Health are free-form strings (process Status kind / health-check state)
// so this package stays independent of pkg/service/pkg/exec.
type Service struct {
	Name   string
	Kind   string
	Status string
	Health string
}

// Table creates and prints a formatted table with headers and rows.
// The headers are displayed in bold at the top of the table.
// This is a general-purpose table function that can be used for any tabular data.
func Table(headers []string, rows [][]string) {
	data := [][]string{headers}
	data = append(data, rows...)
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// KeyValueTable creates a two-column table for key-value pairs.
// If a title is provided, it will be displayed as a header before the table.
// The keys and values from the map are displayed in "Key" and "Value" columns.
// Note: Map iteration order is not guaranteed, so the rows may appear in any order.
func KeyValueTable(title string, data map[string]string) {
	rows := [][]string{}
	for k, v := range data {
		rows = append(rows, []string{k, v})
	}

	if title != "" {
		Header(title)
	}

	Table([]string{"Key", "Value"}, rows)
}

// ServiceTable creates a formatted table for services with color-coded
// status and health columns. "running"/"healthy" print green, "unhealthy"
// prints red, everything else (unknown, exited, ...) prints yellow.
func ServiceTable(services []Service) {
	headers := []string{"Service", "Kind", "Status", "Health"}
	rows := [][]string{}

	for _, svc := range services {
		rows = append(rows, []string{svc.Name, svc.Kind, colorize(svc.Status), colorize(svc.Health)})
	}

	Table(headers, rows)
}

func colorize(state string) string {
	switch state {
	case "running", "healthy":
		return pterm.Green(state)
	case "unhealthy":
		return pterm.Red(state)
	default:
		return pterm.Yellow(state)
	}
}
