package tui

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the colours of the resolver. Each field can be overridden from
// the theme table of the config file, keyed by its json name.
type Theme struct {
	TitleFg                string `json:"title_fg"`
	SidePaneBorder         string `json:"side_pane_border"`
	SelectedSideBorder     string `json:"selected_side_border"`
	HeaderBg               string `json:"header_bg"`
	HeaderFg               string `json:"header_fg"`
	FooterBg               string `json:"footer_bg"`
	FooterFg               string `json:"footer_fg"`
	LineNumberFg           string `json:"line_number"`
	ResultFg               string `json:"result_fg"`
	ModifiedBg             string `json:"modified_bg"`
	ModifiedFg             string `json:"modified_fg"`
	AddedBg                string `json:"added_bg"`
	AddedFg                string `json:"added_fg"`
	RemovedBg              string `json:"removed_bg"`
	RemovedFg              string `json:"removed_fg"`
	ConflictedBg           string `json:"conflicted_bg"`
	ConflictedFg           string `json:"conflicted_fg"`
	InnerBg                string `json:"inner_bg"`
	InnerFg                string `json:"inner_fg"`
	InsertMarkerFg         string `json:"insert_marker_fg"`
	SelectedHunkMarkerFg   string `json:"selected_hunk_marker_fg"`
	SelectedHunkMarkerBg   string `json:"selected_hunk_marker_bg"`
	StatusResolvedFg       string `json:"status_resolved_fg"`
	StatusUnresolvedFg     string `json:"status_unresolved_fg"`
	ResultResolvedFg       string `json:"result_resolved_marker_fg"`
	ResultResolvedBorder   string `json:"result_resolved_border"`
	ResultUnresolvedBorder string `json:"result_unresolved_border"`
	ToastBg                string `json:"toast_bg"`
	ToastFg                string `json:"toast_fg"`
	SelectorResolvedFg     string `json:"selector_resolved_fg"`
	SelectorUnresolvedFg   string `json:"selector_unresolved_fg"`
	DimForeground          string `json:"dim_foreground"`
}

var (
	titleStyle                lipgloss.Style
	sidePaneStyle             lipgloss.Style
	selectedSidePaneStyle     lipgloss.Style
	headerStyle               lipgloss.Style
	footerStyle               lipgloss.Style
	lineNumberStyle           lipgloss.Style
	resultLineStyle           lipgloss.Style
	modifiedLineStyle         lipgloss.Style
	addedLineStyle            lipgloss.Style
	removedLineStyle          lipgloss.Style
	conflictedLineStyle       lipgloss.Style
	innerDiffStyle            lipgloss.Style
	insertMarkerStyle         lipgloss.Style
	selectedHunkMarkerStyle   lipgloss.Style
	statusResolvedStyle       lipgloss.Style
	statusUnresolvedStyle     lipgloss.Style
	resultResolvedMarkerStyle lipgloss.Style
	resultResolvedPaneStyle   lipgloss.Style
	resultUnresolvedPaneStyle lipgloss.Style
	toastStyle                lipgloss.Style
	toastLineStyle            lipgloss.Style
	resultTitleStyle          lipgloss.Style
	dimForeground             lipgloss.Color
)

func init() {
	applyTheme(defaultTheme())
}

func defaultTheme() Theme {
	return Theme{
		TitleFg:                "170",
		SidePaneBorder:         "255",
		SelectedSideBorder:     "33",
		HeaderBg:               "62",
		HeaderFg:               "230",
		FooterBg:               "236",
		FooterFg:               "243",
		LineNumberFg:           "241",
		ResultFg:               "231",
		ModifiedBg:             "24",
		ModifiedFg:             "231",
		AddedBg:                "28",
		AddedFg:                "231",
		RemovedBg:              "237",
		RemovedFg:              "250",
		ConflictedBg:           "131",
		ConflictedFg:           "231",
		InnerBg:                "166",
		InnerFg:                "231",
		InsertMarkerFg:         "196",
		SelectedHunkMarkerFg:   "226",
		SelectedHunkMarkerBg:   "88",
		StatusResolvedFg:       "42",
		StatusUnresolvedFg:     "196",
		ResultResolvedFg:       "42",
		ResultResolvedBorder:   "42",
		ResultUnresolvedBorder: "196",
		ToastBg:                "22",
		ToastFg:                "230",
		SelectorResolvedFg:     "42",
		SelectorUnresolvedFg:   "196",
		DimForeground:          "244",
	}
}

// themeFromConfig merges overrides, keyed by Theme json names, over the
// default theme. Unknown keys are an error.
func themeFromConfig(overrides map[string]string) (Theme, error) {
	base := defaultTheme()
	if len(overrides) == 0 {
		return base, nil
	}

	data, err := json.Marshal(overrides)
	if err != nil {
		return Theme{}, fmt.Errorf("encode theme overrides: %w", err)
	}
	var override Theme
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&override); err != nil {
		return Theme{}, fmt.Errorf("theme: %w", err)
	}
	return mergeTheme(base, override), nil
}

func mergeTheme(base Theme, override Theme) Theme {
	return Theme{
		TitleFg:                pickColor(base.TitleFg, override.TitleFg),
		SidePaneBorder:         pickColor(base.SidePaneBorder, override.SidePaneBorder),
		SelectedSideBorder:     pickColor(base.SelectedSideBorder, override.SelectedSideBorder),
		HeaderBg:               pickColor(base.HeaderBg, override.HeaderBg),
		HeaderFg:               pickColor(base.HeaderFg, override.HeaderFg),
		FooterBg:               pickColor(base.FooterBg, override.FooterBg),
		FooterFg:               pickColor(base.FooterFg, override.FooterFg),
		LineNumberFg:           pickColor(base.LineNumberFg, override.LineNumberFg),
		ResultFg:               pickColor(base.ResultFg, override.ResultFg),
		ModifiedBg:             pickColor(base.ModifiedBg, override.ModifiedBg),
		ModifiedFg:             pickColor(base.ModifiedFg, override.ModifiedFg),
		AddedBg:                pickColor(base.AddedBg, override.AddedBg),
		AddedFg:                pickColor(base.AddedFg, override.AddedFg),
		RemovedBg:              pickColor(base.RemovedBg, override.RemovedBg),
		RemovedFg:              pickColor(base.RemovedFg, override.RemovedFg),
		ConflictedBg:           pickColor(base.ConflictedBg, override.ConflictedBg),
		ConflictedFg:           pickColor(base.ConflictedFg, override.ConflictedFg),
		InnerBg:                pickColor(base.InnerBg, override.InnerBg),
		InnerFg:                pickColor(base.InnerFg, override.InnerFg),
		InsertMarkerFg:         pickColor(base.InsertMarkerFg, override.InsertMarkerFg),
		SelectedHunkMarkerFg:   pickColor(base.SelectedHunkMarkerFg, override.SelectedHunkMarkerFg),
		SelectedHunkMarkerBg:   pickColor(base.SelectedHunkMarkerBg, override.SelectedHunkMarkerBg),
		StatusResolvedFg:       pickColor(base.StatusResolvedFg, override.StatusResolvedFg),
		StatusUnresolvedFg:     pickColor(base.StatusUnresolvedFg, override.StatusUnresolvedFg),
		ResultResolvedFg:       pickColor(base.ResultResolvedFg, override.ResultResolvedFg),
		ResultResolvedBorder:   pickColor(base.ResultResolvedBorder, override.ResultResolvedBorder),
		ResultUnresolvedBorder: pickColor(base.ResultUnresolvedBorder, override.ResultUnresolvedBorder),
		ToastBg:                pickColor(base.ToastBg, override.ToastBg),
		ToastFg:                pickColor(base.ToastFg, override.ToastFg),
		SelectorResolvedFg:     pickColor(base.SelectorResolvedFg, override.SelectorResolvedFg),
		SelectorUnresolvedFg:   pickColor(base.SelectorUnresolvedFg, override.SelectorUnresolvedFg),
		DimForeground:          pickColor(base.DimForeground, override.DimForeground),
	}
}

func pickColor(base string, override string) string {
	if override != "" {
		return override
	}
	return base
}

func applyTheme(theme Theme) {
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.TitleFg)).
		Padding(0, 1)

	sidePaneStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.SidePaneBorder)).
		Padding(0, 1)

	selectedSidePaneStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.SelectedSideBorder)).
		Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Background(lipgloss.Color(theme.HeaderBg)).
		Foreground(lipgloss.Color(theme.HeaderFg)).
		Padding(0, 2)

	footerStyle = lipgloss.NewStyle().
		Background(lipgloss.Color(theme.FooterBg)).
		Foreground(lipgloss.Color(theme.FooterFg)).
		Padding(0, 2)

	lineNumberStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.LineNumberFg))

	resultLineStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.ResultFg))

	modifiedLineStyle = lipgloss.NewStyle().
		Background(lipgloss.Color(theme.ModifiedBg)).
		Foreground(lipgloss.Color(theme.ModifiedFg))

	addedLineStyle = lipgloss.NewStyle().
		Background(lipgloss.Color(theme.AddedBg)).
		Foreground(lipgloss.Color(theme.AddedFg))

	removedLineStyle = lipgloss.NewStyle().
		Background(lipgloss.Color(theme.RemovedBg)).
		Foreground(lipgloss.Color(theme.RemovedFg))

	conflictedLineStyle = lipgloss.NewStyle().
		Background(lipgloss.Color(theme.ConflictedBg)).
		Foreground(lipgloss.Color(theme.ConflictedFg))

	innerDiffStyle = lipgloss.NewStyle().
		Background(lipgloss.Color(theme.InnerBg)).
		Foreground(lipgloss.Color(theme.InnerFg))

	insertMarkerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.InsertMarkerFg)).
		Bold(true)

	selectedHunkMarkerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.SelectedHunkMarkerFg)).
		Background(lipgloss.Color(theme.SelectedHunkMarkerBg)).
		Bold(true)

	statusResolvedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.StatusResolvedFg)).
		Bold(true)

	statusUnresolvedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.StatusUnresolvedFg)).
		Bold(true)

	resultResolvedMarkerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.ResultResolvedFg)).
		Bold(true)

	resultResolvedPaneStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.ResultResolvedBorder)).
		Padding(0, 1)

	resultUnresolvedPaneStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.ResultUnresolvedBorder)).
		Padding(0, 1)

	toastStyle = lipgloss.NewStyle().
		Background(lipgloss.Color(theme.ToastBg)).
		Foreground(lipgloss.Color(theme.ToastFg)).
		Padding(0, 1)

	toastLineStyle = lipgloss.NewStyle().
		Align(lipgloss.Right).
		Padding(0, 2)

	resultTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Background(lipgloss.Color(theme.HeaderBg)).
		Foreground(lipgloss.Color(theme.HeaderFg)).
		Padding(0, 2)

	resolvedLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.SelectorResolvedFg))
	unresolvedLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.SelectorUnresolvedFg))

	dimForeground = lipgloss.Color(theme.DimForeground)
}
