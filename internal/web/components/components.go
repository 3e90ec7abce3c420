// Package components renders the HTML served by the export UI.
package components

//go:generate templ generate

import "github.com/JonMunkholm/ats-export/internal/export"

// ColumnGroup is one fieldset of column checkboxes.
type ColumnGroup struct {
	Name    string
	Columns []export.ExportColumn
}

// ExportPageData drives the export page.
type ExportPageData struct {
	Mode           export.Mode
	Groups         []ColumnGroup
	Presets        []string
	HistoryEnabled bool
}

// GroupColumns groups cols by Group, keeping first-seen group order.
func GroupColumns(cols []export.ExportColumn) []ColumnGroup {
	var groups []ColumnGroup
	index := make(map[string]int)
	for _, c := range cols {
		i, ok := index[c.Group]
		if !ok {
			i = len(groups)
			index[c.Group] = i
			groups = append(groups, ColumnGroup{Name: c.Group})
		}
		groups[i].Columns = append(groups[i].Columns, c)
	}
	return groups
}

type filterField struct {
	name  string
	label string
	kind  string
}

// filterFields mirror the form keys parsed by the export handler.
var filterFields = []filterField{
	{"search", "Search", "text"},
	{"japanese_levels", "Japanese levels (comma separated)", "text"},
	{"education_levels", "Education levels (comma separated)", "text"},
	{"gender", "Gender", "text"},
	{"domicile", "Domicile", "text"},
	{"age_min", "Minimum age", "number"},
	{"age_max", "Maximum age", "number"},
	{"experience_min", "Minimum experience (months)", "number"},
	{"experience_max", "Maximum experience (months)", "number"},
	{"verification_status", "Verification status", "text"},
}
