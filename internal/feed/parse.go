package feed

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/cotlens/internal/domain/cot"
)

// Column header candidates; the CFTC file ships both quoted and unquoted
// header variants across years.
var (
	colMarketCode   = []string{"CFTC_Contract_Market_Code", "CFTC_Contract_Market_Code_Quotes"}
	colReportDate   = []string{"Report_Date_as_YYYY-MM-DD", "Report_Date_as_YYYY-MM-DD_Quotes", "Report_Date_as_YYYY_MM_DD"}
	colComLong      = []string{"Prod_Merc_Positions_Long_All", "Prod_Merc_Positions_Long_All_Quotes"}
	colComShort     = []string{"Prod_Merc_Positions_Short_All", "Prod_Merc_Positions_Short_All_Quotes"}
	colMMoneyLong   = []string{"M_Money_Positions_Long_All", "M_Money_Positions_Long_All_Quotes"}
	colMMoneyShort  = []string{"M_Money_Positions_Short_All", "M_Money_Positions_Short_All_Quotes"}
	colOtherLong    = []string{"Other_Rept_Positions_Long_All", "Other_Rept_Positions_Long_All_Quotes"}
	colOtherShort   = []string{"Other_Rept_Positions_Short_All", "Other_Rept_Positions_Short_All_Quotes"}
	colRetailLong   = []string{"NonRept_Positions_Long_All", "NonRept_Positions_Long_All_Quotes"}
	colRetailShort  = []string{"NonRept_Positions_Short_All", "NonRept_Positions_Short_All_Quotes"}
	colOpenInterest = []string{"Open_Interest_All", "Open_Interest_All_Quotes"}
)

type columnIndex map[string]int

func (ci columnIndex) first(candidates []string) (int, error) {
	for _, name := range candidates {
		if i, ok := ci[name]; ok {
			return i, nil
		}
	}
	return 0, fmt.Errorf("feed: none of columns %v present in header", candidates)
}

// ParseMarket extracts the weekly records for one CFTC contract market code
// from a raw report body, sorted ascending by report date. Non-commercial
// positions combine managed money and other reportable.
func ParseMarket(raw, cotCode string) ([]cot.WeeklyRecord, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("feed: parse report CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("feed: report is empty")
	}

	index := columnIndex{}
	for i, name := range rows[0] {
		index[strings.Trim(strings.TrimSpace(name), `"`)] = i
	}

	marketIdx, err := index.first(colMarketCode)
	if err != nil {
		return nil, err
	}
	dateIdx, err := index.first(colReportDate)
	if err != nil {
		return nil, err
	}

	fieldIdx := make(map[string]int, 9)
	for name, candidates := range map[string][]string{
		"comLong":     colComLong,
		"comShort":    colComShort,
		"mMoneyLong":  colMMoneyLong,
		"mMoneyShort": colMMoneyShort,
		"otherLong":   colOtherLong,
		"otherShort":  colOtherShort,
		"retailLong":  colRetailLong,
		"retailShort": colRetailShort,
		"oi":          colOpenInterest,
	} {
		i, err := index.first(candidates)
		if err != nil {
			return nil, err
		}
		fieldIdx[name] = i
	}

	var records []cot.WeeklyRecord
	for _, row := range rows[1:] {
		if len(row) < len(rows[0]) {
			continue
		}
		if cell(row, marketIdx) != cotCode {
			continue
		}

		dateStr := cell(row, dateIdx)
		if dateStr == "" {
			continue
		}
		reportDate, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			continue
		}

		mMoneyLong := cellInt(row, fieldIdx["mMoneyLong"])
		mMoneyShort := cellInt(row, fieldIdx["mMoneyShort"])
		otherLong := cellInt(row, fieldIdx["otherLong"])
		otherShort := cellInt(row, fieldIdx["otherShort"])

		records = append(records, cot.WeeklyRecord{
			ReportDate:         reportDate,
			CommercialLong:     cellInt(row, fieldIdx["comLong"]),
			CommercialShort:    cellInt(row, fieldIdx["comShort"]),
			NonCommercialLong:  mMoneyLong + otherLong,
			NonCommercialShort: mMoneyShort + otherShort,
			SmallTraderLong:    cellInt(row, fieldIdx["retailLong"]),
			SmallTraderShort:   cellInt(row, fieldIdx["retailShort"]),
			OpenInterest:       cellInt(row, fieldIdx["oi"]),
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ReportDate.Before(records[j].ReportDate)
	})

	return records, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.Trim(strings.TrimSpace(row[i]), `"`)
}

func cellInt(row []string, i int) int64 {
	v, err := strconv.ParseInt(cell(row, i), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
