package formatting

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"switchyard/internal/api"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
	now     func() time.Time
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
		now:     time.Now,
	}
}

// FormatStatus prints a summary line followed by a services table and a
// routes table.
func (f *TableFormatter) FormatStatus(status api.SystemStatus) error {
	w := f.options.writer()

	fmt.Fprintf(w, "%s %s  basic: %s  enhanced: %s  version: %s\n",
		f.colorize(text.FgHiBlue, "Health:"),
		f.health(status.Health),
		f.readiness(status.BasicReady),
		f.readiness(status.EnhancedReady),
		status.Version,
	)
	fmt.Fprintln(w)

	f.servicesTable(w, status.Services).Render()
	fmt.Fprintln(w)
	f.routesTable(w, status.Routes).Render()
	return nil
}

// FormatRouteWait prints one line for the result and the route table row.
func (f *TableFormatter) FormatRouteWait(result api.RouteWaitResult) error {
	w := f.options.writer()
	if result.Ready {
		fmt.Fprintf(w, "%s route %s is served by %s\n",
			f.colorize(text.FgGreen, "✓"), result.Route, result.Status.ActiveService)
	} else {
		fmt.Fprintf(w, "%s route %s is not ready\n",
			f.colorize(text.FgYellow, "⚠"), result.Route)
	}
	fmt.Fprintln(w)
	f.routesTable(w, []api.RouteStatus{result.Status}).Render()
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) header(t table.Writer, columns ...string) {
	if f.options.NoHeaders {
		return
	}
	row := make(table.Row, len(columns))
	for i, c := range columns {
		row[i] = f.colorize(text.FgHiCyan, c)
	}
	t.AppendHeader(row)
}

func (f *TableFormatter) servicesTable(w io.Writer, services []api.ServiceStatus) table.Writer {
	t := f.createTable(w)
	t.SetTitle("Services")
	f.header(t, "NAME", "STATE", "AGE", "FAILURES", "INIT", "NEXT RETRY", "LAST ERROR")

	now := f.now()
	for _, s := range services {
		nextRetry := "-"
		if s.NextRetryAt != nil {
			nextRetry = formatDuration(s.NextRetryAt.Sub(now).Round(time.Second))
		}
		lastError := "-"
		if s.LastError != "" {
			lastError = truncate(s.LastError, maxErrorLen)
		}
		t.AppendRow(table.Row{
			s.Name,
			f.state(s.State),
			formatAge(s.LastTransition, now),
			strconv.Itoa(s.ConsecutiveFailures),
			formatDuration(s.InitDuration),
			nextRetry,
			lastError,
		})
	}
	return t
}

func (f *TableFormatter) routesTable(w io.Writer, routes []api.RouteStatus) table.Writer {
	t := f.createTable(w)
	t.SetTitle("Routes")
	f.header(t, "ROUTE", "PRIMARY", "FALLBACKS", "AVAILABLE", "ACTIVE", "MISSING")

	for _, r := range routes {
		active := r.ActiveService
		if active == "" {
			active = "-"
		} else if r.UsingFallback {
			active += " (fallback)"
		}
		t.AppendRow(table.Row{
			r.Name,
			r.Primary,
			joinOrDash(r.Fallbacks),
			f.readiness(r.Available),
			active,
			joinOrDash(r.MissingServices),
		})
	}
	return t
}

func (f *TableFormatter) state(s api.ServiceState) string {
	switch s {
	case api.StateReady:
		return f.colorize(text.FgGreen, string(s))
	case api.StateInitializing:
		return f.colorize(text.FgYellow, string(s))
	case api.StateFailed:
		return f.colorize(text.FgRed, string(s))
	default:
		return string(s)
	}
}

func (f *TableFormatter) health(h api.HealthStatus) string {
	switch h {
	case api.HealthHealthy:
		return f.colorize(text.FgGreen, string(h))
	case api.HealthDegraded:
		return f.colorize(text.FgYellow, string(h))
	case api.HealthUnhealthy:
		return f.colorize(text.FgRed, string(h))
	default:
		return string(h)
	}
}

func (f *TableFormatter) readiness(ok bool) string {
	if ok {
		return f.colorize(text.FgGreen, "yes")
	}
	return f.colorize(text.FgRed, "no")
}

func (f *TableFormatter) colorize(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}
