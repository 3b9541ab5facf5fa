package portal

import (
	"embed"
	"html/template"
	"io"

	"saferoads/weather"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"currency":      FormatCurrency,
	"date":          FormatDate,
	"severityClass": SeverityClass,
	"markerColor":   MarkerColor,
	"visibility":    weather.VisibilityLevelFor,
}).ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	State
	Threshold         int
	Projects          []Project
	EmergencyContacts []EmergencyContact
	EmergencyPending  bool
}

// RenderPage writes the whole portal for the current state.
func (a *App) RenderPage(w io.Writer) error {
	st := a.store.Snapshot()

	pending := false
	a.mu.Lock()
	if a.emergency != nil {
		pending = !a.emergency.Ready()
	}
	a.mu.Unlock()

	return pageTemplate.Execute(w, pageData{
		State:             st,
		Threshold:         a.store.Threshold(),
		Projects:          st.VisibleProjects(),
		EmergencyContacts: EmergencyContacts,
		EmergencyPending:  pending,
	})
}
