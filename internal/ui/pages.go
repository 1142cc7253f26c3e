package ui

import (
	"strconv"
	"strings"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

func appPage(title, subtitle string, body ...gomponents.Node) gomponents.Node {
	return html.HTML(
		html.Lang("en"),
		html.Head(
			html.Meta(html.Charset("utf-8")),
			html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
			html.TitleEl(gomponents.Text(title)),
			html.Link(html.Rel("stylesheet"), html.Href("/ui/static/app.css")),
			html.Script(
				html.Type("module"),
				html.Src("https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"),
			),
			html.Script(html.Src("https://cdn.jsdelivr.net/npm/vega@5")),
			html.Script(html.Src("https://cdn.jsdelivr.net/npm/vega-lite@5")),
			html.Script(html.Src("https://cdn.jsdelivr.net/npm/vega-embed@6")),
		),
		html.Body(
			html.Main(
				html.Class("layout"),
				html.Div(
					html.Class("topbar"),
					html.Div(
						html.H1(html.Class("page-title"), gomponents.Text(title)),
						html.P(html.Class("muted mono"), gomponents.Text(subtitle)),
					),
				),
				gomponents.Group(body),
			),
		),
	)
}

// containsExpr builds the client-side expression for the quick filter: a card
// stays visible while the search box is empty or matches its haystack.
func containsExpr(value string) string {
	lower := strings.ToLower(value)
	return "$q === '' || " + strconv.Quote(lower) + ".includes($q.toLowerCase())"
}

func statRow(label, value string) gomponents.Node {
	return html.Tr(html.Td(gomponents.Text(label)), html.Td(gomponents.Text(value)))
}

func statOpt(v *string) string {
	if v == nil {
		return "N/A"
	}
	return *v
}
