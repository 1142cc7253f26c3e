// Package ui renders the data exploration dashboard: one card per column
// with a chart, summary statistics, and client-side search and kind filters.
package ui

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/apache/arrow-go/v18/arrow"

	gomponents "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	html "maragu.dev/gomponents/html"

	"lakeview/internal/config"
	"lakeview/internal/dataset"
	"lakeview/internal/domain"
)

type Handler struct {
	Table      arrow.Table
	Dash       config.DashboardConfig
	DatasetURI string
	Logger     *slog.Logger
}

func NewHandler(table arrow.Table, dash config.DashboardConfig, datasetURI string, logger *slog.Logger) *Handler {
	return &Handler{Table: table, Dash: dash, DatasetURI: datasetURI, Logger: logger}
}

var kindFilters = []domain.ColumnKind{
	domain.KindNumeric,
	domain.KindStringBool,
	domain.KindTemporal,
	domain.KindOther,
}

// Home renders the dashboard page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	cards := make([]gomponents.Node, 0, h.Table.NumCols())
	for i := 0; i < int(h.Table.NumCols()); i++ {
		field := h.Table.Schema().Field(i)
		if h.Dash.Hidden(field.Name) {
			continue
		}
		cards = append(cards, h.columnCard(i, field))
	}

	subtitle := fmt.Sprintf("%s · %d rows", h.DatasetURI, h.Table.NumRows())
	page := appPage(h.Dash.Title, subtitle,
		data.Signals(filterSignals()),
		filterCard(),
		html.Div(html.Class("column-grid"), gomponents.Group(cards)),
	)
	h.render(w, page)
}

func filterSignals() map[string]any {
	signals := map[string]any{"q": ""}
	for _, k := range kindFilters {
		signals[k.Signal()] = true
	}
	return signals
}

func filterCard() gomponents.Node {
	toggles := make([]gomponents.Node, 0, len(kindFilters))
	for _, k := range kindFilters {
		toggles = append(toggles, html.Label(
			html.Input(html.Type("checkbox"), data.Bind(k.Signal())),
			gomponents.Text(k.String()),
		))
	}
	return html.Div(
		html.Class("card filters"),
		html.Input(html.Type("text"), data.Bind("q"), html.Placeholder("Search columns by name or type")),
		gomponents.Group(toggles),
	)
}

func (h *Handler) columnCard(idx int, field arrow.Field) gomponents.Node {
	kind := domain.ClassifyType(field.Type)
	showExpr := "(" + containsExpr(field.Name+" "+kind.String()) + ") && $" + kind.Signal()

	return html.Div(
		html.Class("card column-card"),
		data.Show(showExpr),
		html.Div(
			html.Class("topbar"),
			html.H2(gomponents.Text(field.Name)),
			html.Span(html.Class("badge"), gomponents.Text(field.Type.String())),
		),
		h.chartNode(idx, field),
		h.statsTable(field.Name),
	)
}

func (h *Handler) chartNode(idx int, field arrow.Field) gomponents.Node {
	spec, ok := chartSpec(field)
	if !ok {
		return html.Div(html.Class("unsupported"), gomponents.Text("Unsupported: "+field.Type.String()))
	}

	elementID := fmt.Sprintf("chart-%d", idx)
	script, err := chartEmbedJS(elementID, spec)
	if err != nil {
		h.Logger.Error("build chart", "column", field.Name, "error", err)
		return html.Div(html.Class("unsupported"), gomponents.Text("Chart unavailable"))
	}

	return gomponents.Group([]gomponents.Node{
		html.Div(html.Class("chart"), html.ID(elementID)),
		html.Script(gomponents.Raw(script)),
	})
}

func (h *Handler) statsTable(name string) gomponents.Node {
	col, err := dataset.Column(h.Table, name)
	if err != nil {
		return html.P(html.Class("muted"), gomponents.Text("No statistics available"))
	}
	s := dataset.Describe(col)

	rows := []gomponents.Node{
		statRow("Rows", fmt.Sprintf("%d", s.Rows)),
		statRow("Nulls", fmt.Sprintf("%d", s.Nulls)),
		statRow("Unique", fmt.Sprintf("%d", s.Unique)),
	}
	if s.Mean != nil {
		rows = append(rows,
			statRow("Mean", statOpt(s.Mean)),
			statRow("Std", statOpt(s.Std)),
			statRow("Min", statOpt(s.Min)),
			statRow("Max", statOpt(s.Max)),
		)
	}
	return html.Table(html.Class("stats"), html.TBody(rows...))
}

func (h *Handler) render(w http.ResponseWriter, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := node.Render(w); err != nil {
		h.Logger.Error("render page", "error", err)
	}
}
