package interfaces

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	tariffs "optifactura/internal/tariffs/domain"
)

// BuildTariffXLSX renders the current reference tariffs, one sheet per
// provider.
func BuildTariffXLSX(byProvider map[tariffs.Provider][]tariffs.ReferenceTariff) ([]byte, error) {
	f := excelize.NewFile()

	providers := make([]tariffs.Provider, 0, len(byProvider))
	for provider := range byProvider {
		providers = append(providers, provider)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })

	for i, provider := range providers {
		sheet := string(provider)
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
		}

		_ = f.SetCellValue(sheet, "A1", "Stratum")
		_ = f.SetCellValue(sheet, "B1", "Unit Price")
		_ = f.SetCellValue(sheet, "C1", "Unit")
		_ = f.SetCellValue(sheet, "D1", "Fixed Charge")
		_ = f.SetCellValue(sheet, "E1", "Subsidy/Contribution %")
		_ = f.SetCellValue(sheet, "F1", "Effective From")
		_ = f.SetCellValue(sheet, "G1", "Approximate")
		_ = f.SetCellValue(sheet, "H1", "Source Update")

		for j, tariff := range byProvider[provider] {
			row := j + 2
			_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), tariff.Stratum)
			_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), tariff.UnitPrice)
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(tariff.Unit))
			_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), tariff.FixedCharge)
			_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), tariff.SubsidyOrContributionPercent)
			_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), tariff.EffectiveFrom.Format("2006-01-02"))
			_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), tariff.Approximate)
			_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), tariff.SourceUpdateID)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
