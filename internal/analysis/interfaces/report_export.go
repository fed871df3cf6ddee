package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	analysis "optifactura/internal/analysis/domain"
)

// BuildAnalysisPDF renders a minimal PDF for a stored bill analysis.
func BuildAnalysisPDF(stored *analysis.StoredAnalysis) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Bill Analysis Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Analysis: %s", stored.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Provider: %s (%s)", stored.Provider, stored.Service))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Stratum: %s", stored.Stratum))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", stored.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	if stored.Result.ApproximateTariff {
		pdf.Cell(0, 6, "Tariff source: approximate reference values")
		pdf.Ln(5)
	}

	if sb := stored.Result.ShadowBilling; sb != nil {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Shadow Billing")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Consumption: %.2f", sb.Consumption))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Expected total (COP): %.2f", sb.ExpectedTotal))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Billed total (COP): %.2f", sb.TotalBilled))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Difference: %.2f (%.1f%%)", sb.Difference, sb.PercentError))
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Findings (%d)", len(stored.Result.Findings)))
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	if len(stored.Result.Findings) == 0 {
		pdf.Cell(0, 6, "No anomalies detected.")
		pdf.Ln(5)
	}
	for _, finding := range stored.Result.Findings {
		pdf.CellFormat(45, 6, string(finding.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, string(finding.Severity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(125, 6, finding.Description, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	if len(stored.Result.Recommendations) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Recommendations")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		for _, rec := range stored.Result.Recommendations {
			pdf.Cell(0, 6, fmt.Sprintf("[%s] %s", rec.Type, rec.Description))
			pdf.Ln(5)
			for _, step := range rec.Steps {
				pdf.Cell(0, 5, "  - "+step)
				pdf.Ln(5)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
