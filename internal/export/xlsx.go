// Package export writes a run's competitors and normalized ads to an XLSX
// workbook for analyst handoff.
package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/adintel-cli/internal/model"
)

// WriteWorkbook writes one workbook with a Competitors sheet and an Ads sheet.
func WriteWorkbook(path string, competitors []model.ValidatedCompetitor, ads []model.NormalizedAdRecord) error {
	f := xlsx.NewFile()

	if err := addCompetitorSheet(f, competitors); err != nil {
		return err
	}
	if err := addAdSheet(f, ads); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func addCompetitorSheet(f *xlsx.File, competitors []model.ValidatedCompetitor) error {
	sheet, err := f.AddSheet("Competitors")
	if err != nil {
		return eris.Wrap(err, "export: add competitors sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Company", "Source", "Tier", "Confidence", "Market Overlap %", "Competitor"} {
		header.AddCell().Value = h
	}

	for _, c := range competitors {
		row := sheet.AddRow()
		row.AddCell().Value = c.CompanyName
		row.AddCell().Value = c.SourceList
		row.AddCell().Value = c.Tier
		row.AddCell().SetFloat(c.Confidence)
		row.AddCell().SetFloat(c.MarketOverlapPct)
		row.AddCell().SetBool(c.IsCompetitor)
	}
	return nil
}

func addAdSheet(f *xlsx.File, ads []model.NormalizedAdRecord) error {
	sheet, err := f.AddSheet("Ads")
	if err != nil {
		return eris.Wrap(err, "export: add ads sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Ad ID", "Brand", "Media Type", "Creative Text", "Unique Parts", "Has Duplicates", "Image URLs", "Card Titles", "Card Bodies"} {
		header.AddCell().Value = h
	}

	for _, ad := range ads {
		row := sheet.AddRow()
		row.AddCell().Value = ad.AdID
		row.AddCell().Value = ad.Brand
		row.AddCell().Value = string(ad.MediaType)
		row.AddCell().Value = ad.CreativeText
		row.AddCell().SetInt(ad.TotalUniqueTextParts)
		row.AddCell().SetBool(ad.HasDuplicateContent)
		row.AddCell().Value = strings.Join(ad.ImageURLs, "\n")
		row.AddCell().Value = ad.CardTitles
		row.AddCell().Value = ad.CardBodies
	}
	return nil
}
