package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/mesadeayuda/helpdesk/internal/repository"
)

const (
	pageWidth      = 210.0
	marginLeft     = 15.0
	contentWidth   = pageWidth - 2*marginLeft
	pageBreakAt    = 260.0
	tableRowHeight = 8.0
)

type pdfBuilder struct {
	pdf      *gofpdf.Fpdf
	title    string
	location *time.Location
	images   int
}

func newPDFBuilder(title string, loc *time.Location) *pdfBuilder {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	b := &pdfBuilder{pdf: pdf, title: title, location: loc}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Página %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	b.addPage()
	return b
}

func (b *pdfBuilder) addPage() {
	b.pdf.AddPage()
	b.pdf.SetFillColor(31, 60, 136)
	b.pdf.Rect(0, 0, pageWidth, 26, "F")
	b.pdf.SetTextColor(255, 255, 255)
	b.pdf.SetFont("Helvetica", "B", 16)
	b.pdf.Text(marginLeft, 12, b.title)
	b.pdf.SetFont("Helvetica", "", 9)
	generated := time.Now().In(b.location).Format("2006-01-02 15:04")
	b.pdf.Text(marginLeft, 20, "Generado: "+generated)
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.SetY(34)
}

// ensureSpace starts a fresh page when the next block would overflow.
func (b *pdfBuilder) ensureSpace(height float64) {
	if b.pdf.GetY()+height > pageBreakAt {
		b.addPage()
	}
}

func (b *pdfBuilder) sectionTitle(text string) {
	b.ensureSpace(14)
	b.pdf.SetFont("Helvetica", "B", 12)
	b.pdf.SetTextColor(31, 60, 136)
	b.pdf.SetX(marginLeft)
	b.pdf.CellFormat(contentWidth, 8, text, "", 1, "L", false, 0, "")
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.Ln(2)
}

func (b *pdfBuilder) metricsBlock(metrics *repository.GlobalMetrics) {
	b.sectionTitle("Resumen General")
	cells := []struct {
		label string
		value int
	}{
		{"Total", metrics.Total},
		{"Abiertos", metrics.Open},
		{"Cerrados", metrics.Closed},
	}
	cellWidth := contentWidth / float64(len(cells))
	b.ensureSpace(20)
	y := b.pdf.GetY()
	for i, cell := range cells {
		x := marginLeft + float64(i)*cellWidth
		b.pdf.SetFillColor(241, 245, 249)
		b.pdf.Rect(x+1, y, cellWidth-2, 18, "F")
		b.pdf.SetFont("Helvetica", "B", 16)
		b.pdf.SetXY(x, y+3)
		b.pdf.CellFormat(cellWidth, 8, fmt.Sprintf("%d", cell.value), "", 0, "C", false, 0, "")
		b.pdf.SetFont("Helvetica", "", 9)
		b.pdf.SetXY(x, y+11)
		b.pdf.CellFormat(cellWidth, 5, cell.label, "", 0, "C", false, 0, "")
	}
	b.pdf.SetY(y + 22)
}

func (b *pdfBuilder) image(buf *bytes.Buffer, width float64) error {
	if buf == nil {
		return nil
	}
	b.images++
	name := fmt.Sprintf("chart-%d", b.images)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	info := b.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(buf.Bytes()))
	if b.pdf.Err() {
		return b.pdf.Error()
	}
	height := width * info.Height() / info.Width()
	b.ensureSpace(height + 4)
	x := marginLeft + (contentWidth-width)/2
	b.pdf.ImageOptions(name, x, b.pdf.GetY(), width, height, false, opts, 0, "")
	b.pdf.SetY(b.pdf.GetY() + height + 4)
	return b.pdf.Error()
}

func (b *pdfBuilder) tableHeader(headers []string, widths []float64) {
	b.pdf.SetFont("Helvetica", "B", 9)
	b.pdf.SetFillColor(31, 60, 136)
	b.pdf.SetTextColor(255, 255, 255)
	b.pdf.SetX(marginLeft)
	for i, h := range headers {
		b.pdf.CellFormat(widths[i], tableRowHeight, h, "1", 0, "C", true, 0, "")
	}
	b.pdf.Ln(tableRowHeight)
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.SetFont("Helvetica", "", 9)
}

func (b *pdfBuilder) tableRow(cells []string, widths []float64, headers []string, fill bool) {
	if b.pdf.GetY()+tableRowHeight > pageBreakAt {
		b.addPage()
		b.tableHeader(headers, widths)
	}
	if fill {
		b.pdf.SetFillColor(241, 245, 249)
	}
	b.pdf.SetX(marginLeft)
	for i, cell := range cells {
		align := "C"
		if i == 0 {
			align = "L"
		}
		b.pdf.CellFormat(widths[i], tableRowHeight, cell, "1", 0, align, fill, 0, "")
	}
	b.pdf.Ln(tableRowHeight)
}

func (b *pdfBuilder) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildUserReport assembles the per-user ticket report PDF.
func BuildUserReport(metrics *repository.GlobalMetrics, rows []repository.UserTicketCount, loc *time.Location) ([]byte, error) {
	b := newPDFBuilder("Reporte de Tickets por Usuario", loc)
	b.metricsBlock(metrics)

	pie, err := StatusPie(metrics)
	if err != nil {
		return nil, err
	}
	if pie != nil {
		b.sectionTitle("Distribución por Estado")
		if err := b.image(pie, 110); err != nil {
			return nil, err
		}
	}

	bars, err := UserBars(topUsers(rows, 10))
	if err != nil {
		return nil, err
	}
	if bars != nil {
		b.sectionTitle("Usuarios con Mayor Actividad")
		if err := b.image(bars, 170); err != nil {
			return nil, err
		}
	}

	b.sectionTitle("Detalle por Usuario")
	headers := []string{"Usuario", "Departamento", "Creados", "Asignados", "Total"}
	widths := []float64{55, 50, 25, 25, 25}
	b.ensureSpace(tableRowHeight * 2)
	b.tableHeader(headers, widths)
	for i, row := range rows {
		b.tableRow([]string{
			row.UserName,
			row.Department,
			fmt.Sprintf("%d", row.Created),
			fmt.Sprintf("%d", row.Assigned),
			fmt.Sprintf("%d", row.Total()),
		}, widths, headers, i%2 == 1)
	}

	return b.output()
}

// topUsers ranks by combined created+assigned volume, dropping users without
// tickets. Ties keep the incoming (alphabetical) order.
func topUsers(rows []repository.UserTicketCount, limit int) []repository.UserTicketCount {
	ranked := make([]repository.UserTicketCount, 0, len(rows))
	for _, row := range rows {
		if row.Total() > 0 {
			ranked = append(ranked, row)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Total() > ranked[j].Total() })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// BuildDepartmentReport assembles the per-department ticket report PDF.
func BuildDepartmentReport(metrics *repository.GlobalMetrics, rows []repository.DepartmentTicketCount, loc *time.Location) ([]byte, error) {
	b := newPDFBuilder("Reporte de Tickets por Departamento", loc)
	b.metricsBlock(metrics)

	pie, err := StatusPie(metrics)
	if err != nil {
		return nil, err
	}
	if pie != nil {
		b.sectionTitle("Distribución por Estado")
		if err := b.image(pie, 110); err != nil {
			return nil, err
		}
	}

	bars, err := DepartmentBars(rows)
	if err != nil {
		return nil, err
	}
	if bars != nil {
		b.sectionTitle("Volumen por Departamento")
		if err := b.image(bars, 170); err != nil {
			return nil, err
		}
	}

	b.sectionTitle("Detalle por Departamento")
	headers := []string{"Departamento", "Tickets"}
	widths := []float64{130, 50}
	b.ensureSpace(tableRowHeight * 2)
	b.tableHeader(headers, widths)
	for i, row := range rows {
		b.tableRow([]string{
			row.Department,
			fmt.Sprintf("%d", row.Count),
		}, widths, headers, i%2 == 1)
	}

	return b.output()
}
