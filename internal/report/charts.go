package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mesadeayuda/helpdesk/internal/domain"
	"github.com/mesadeayuda/helpdesk/internal/repository"
)

var statusColors = map[domain.TicketStatus]drawing.Color{
	domain.TicketStatusOpen:       {R: 0xFC, G: 0xD3, B: 0x4D, A: 255},
	domain.TicketStatusInProgress: {R: 0x60, G: 0xA5, B: 0xFA, A: 255},
	domain.TicketStatusResolved:   {R: 0x34, G: 0xD3, B: 0x99, A: 255},
	domain.TicketStatusClosed:     {R: 0x9C, G: 0xA3, B: 0xAF, A: 255},
}

var fallbackColor = drawing.Color{R: 0xCB, G: 0xD5, B: 0xE1, A: 255}

// StatusPie renders the ticket status distribution as a PNG pie chart.
func StatusPie(metrics *repository.GlobalMetrics) (*bytes.Buffer, error) {
	values := make([]chart.Value, 0, len(metrics.ByStatus))
	for _, sc := range metrics.ByStatus {
		if sc.Count == 0 {
			continue
		}
		color, ok := statusColors[sc.Status]
		if !ok {
			color = fallbackColor
		}
		values = append(values, chart.Value{
			Value: float64(sc.Count),
			Label: fmt.Sprintf("%s (%d)", sc.Status, sc.Count),
			Style: chart.Style{FillColor: color},
		})
	}
	if len(values) == 0 {
		return nil, nil
	}

	pie := chart.PieChart{
		Width:  512,
		Height: 384,
		Values: values,
	}
	buf := &bytes.Buffer{}
	if err := pie.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// UserBars renders total ticket volume for the top users.
func UserBars(rows []repository.UserTicketCount) (*bytes.Buffer, error) {
	bars := make([]chart.Value, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, chart.Value{
			Value: float64(row.Total()),
			Label: truncate(row.UserName, 15),
		})
	}
	return renderBars("Top Usuarios - Tickets Creados + Asignados", bars)
}

// DepartmentBars renders ticket volume per department.
func DepartmentBars(rows []repository.DepartmentTicketCount) (*bytes.Buffer, error) {
	bars := make([]chart.Value, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, chart.Value{
			Value: float64(row.Count),
			Label: truncate(row.Department, 20),
		})
	}
	return renderBars("Tickets por Departamento", bars)
}

func renderBars(title string, bars []chart.Value) (*bytes.Buffer, error) {
	if len(bars) == 0 {
		return nil, nil
	}
	barChart := chart.BarChart{
		Title:    title,
		Width:    800,
		Height:   400,
		BarWidth: 48,
		Bars:     bars,
	}
	buf := &bytes.Buffer{}
	if err := barChart.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// truncate shortens chart labels by runes, keeping accented names valid.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
