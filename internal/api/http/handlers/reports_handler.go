package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mesadeayuda/helpdesk/internal/service"
)

// ReportsHandler streams the PDF reports.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// UsersPDF GET /reports/users.pdf.
func (h *ReportsHandler) UsersPDF(c *fiber.Ctx) error {
	pdf, err := h.reports.UserReportPDF(c.Context())
	if err != nil {
		return err
	}
	return sendPDF(c, "reporte_usuarios.pdf", pdf)
}

// DepartmentsPDF GET /reports/departments.pdf.
func (h *ReportsHandler) DepartmentsPDF(c *fiber.Ctx) error {
	pdf, err := h.reports.DepartmentReportPDF(c.Context())
	if err != nil {
		return err
	}
	return sendPDF(c, "reporte_departamentos.pdf", pdf)
}

func sendPDF(c *fiber.Ctx, filename string, pdf []byte) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}
