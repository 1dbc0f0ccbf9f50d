// Package star reshapes the curated outputs into a BI star schema:
// date, month, entity and account dimensions plus GL and KPI fact tables,
// keyed by small sequential surrogate keys assigned in sorted natural-key
// order. Purely mechanical; no new invariants.
package star

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tulima-labs/finance-etl/internal/csvio"
	"github.com/tulima-labs/finance-etl/internal/kpi"
	"github.com/tulima-labs/finance-etl/internal/ledger"
	"github.com/tulima-labs/finance-etl/internal/model"
)

// Export writes the star schema for one month into outDir. The ledger is
// filtered to the month first; the KPI rows are used as-is for that month.
func Export(entries []ledger.Entry, accounts []model.Account, kpiRows []kpi.Row, month, outDir string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("star: month must be YYYY-MM (got %q)", month)
	}

	var monthEntries []ledger.Entry
	for _, e := range entries {
		if ledger.MonthOf(e.Date) == month {
			monthEntries = append(monthEntries, e)
		}
	}
	var monthKPI []kpi.Row
	for _, r := range kpiRows {
		if r.Month == month {
			monthKPI = append(monthKPI, r)
		}
	}

	entityKey := buildEntityKeys(monthEntries, monthKPI)
	accountKey := buildAccountKeys(accounts)
	dates := distinctDates(monthEntries)

	if err := writeDimEntity(filepath.Join(outDir, "dim_entity.csv"), entityKey); err != nil {
		return err
	}
	if err := writeDimAccount(filepath.Join(outDir, "dim_account.csv"), accounts, accountKey); err != nil {
		return err
	}
	if err := writeDimDate(filepath.Join(outDir, "dim_date.csv"), dates); err != nil {
		return err
	}
	if err := writeDimMonth(filepath.Join(outDir, "dim_month.csv"), dates); err != nil {
		return err
	}
	if err := writeFactGL(filepath.Join(outDir, "fact_gl.csv"), monthEntries, entityKey, accountKey); err != nil {
		return err
	}
	if err := writeFactKPI(filepath.Join(outDir, "fact_kpi_monthly.csv"), monthKPI, entityKey, month); err != nil {
		return err
	}
	return writeModelNotes(filepath.Join(outDir, "MODEL_NOTES.txt"), month)
}

func buildEntityKeys(entries []ledger.Entry, kpiRows []kpi.Row) map[string]int {
	set := make(map[string]bool)
	for _, e := range entries {
		if strings.TrimSpace(e.Entity) != "" {
			set[e.Entity] = true
		}
	}
	for _, r := range kpiRows {
		if strings.TrimSpace(r.Entity) != "" {
			set[r.Entity] = true
		}
	}
	names := make([]string, 0, len(set))
	for e := range set {
		names = append(names, e)
	}
	sort.Strings(names)

	keys := make(map[string]int, len(names))
	for i, e := range names {
		keys[e] = i + 1
	}
	return keys
}

func buildAccountKeys(accounts []model.Account) map[string]int {
	codes := make([]string, 0, len(accounts))
	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		if !seen[a.Code] {
			seen[a.Code] = true
			codes = append(codes, a.Code)
		}
	}
	sort.Strings(codes)

	keys := make(map[string]int, len(codes))
	for i, c := range codes {
		keys[c] = i + 1
	}
	return keys
}

func distinctDates(entries []ledger.Entry) []civil.Date {
	set := make(map[civil.Date]bool)
	for _, e := range entries {
		set[e.Date] = true
	}
	dates := make([]civil.Date, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func dateKey(d civil.Date) string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

func monthKey(month string) string {
	return strings.ReplaceAll(month, "-", "")
}

func quarter(m time.Month) int {
	return (int(m)-1)/3 + 1
}

func writeDimEntity(path string, entityKey map[string]int) error {
	entities := make([]string, 0, len(entityKey))
	for e := range entityKey {
		entities = append(entities, e)
	}
	sort.Strings(entities)

	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, []string{fmt.Sprint(entityKey[e]), e})
	}
	return csvio.WriteCSV(path, []string{"entity_key", "entity"}, rows)
}

func writeDimAccount(path string, accounts []model.Account, accountKey map[string]int) error {
	byCode := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		if _, ok := byCode[a.Code]; !ok {
			byCode[a.Code] = a
		}
	}
	codes := make([]string, 0, len(accountKey))
	for c := range accountKey {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	rows := make([][]string, 0, len(codes))
	for _, c := range codes {
		a := byCode[c]
		rows = append(rows, []string{fmt.Sprint(accountKey[c]), a.Code, a.Name, a.Type})
	}
	return csvio.WriteCSV(path, []string{"account_key", "account_code", "account_name", "account_type"}, rows)
}

func writeDimDate(path string, dates []civil.Date) error {
	rows := make([][]string, 0, len(dates))
	for _, d := range dates {
		t := d.In(time.UTC)
		_, week := t.ISOWeek()
		rows = append(rows, []string{
			dateKey(d),
			d.String(),
			fmt.Sprint(d.Year),
			fmt.Sprint(quarter(d.Month)),
			monthKey(ledger.MonthOf(d)),
			ledger.MonthOf(d),
			fmt.Sprint(int(d.Month)),
			t.Format("Jan"),
			fmt.Sprint(week),
			fmt.Sprint(d.Day),
		})
	}
	return csvio.WriteCSV(path, []string{
		"date_key", "date", "year", "quarter", "month_key", "month_label",
		"month", "month_name", "week", "day",
	}, rows)
}

func writeDimMonth(path string, dates []civil.Date) error {
	type monthInfo struct {
		label    string
		year     int
		quarter  int
		month    int
		name     string
		startKey string
	}
	months := make(map[string]monthInfo)
	for _, d := range dates {
		label := ledger.MonthOf(d)
		info, ok := months[label]
		if !ok || dateKey(d) < info.startKey {
			months[label] = monthInfo{
				label:    label,
				year:     d.Year,
				quarter:  quarter(d.Month),
				month:    int(d.Month),
				name:     d.In(time.UTC).Format("Jan"),
				startKey: dateKey(d),
			}
		}
	}
	labels := make([]string, 0, len(months))
	for l := range months {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	rows := make([][]string, 0, len(labels))
	for _, l := range labels {
		info := months[l]
		rows = append(rows, []string{
			monthKey(l), l, fmt.Sprint(info.year), fmt.Sprint(info.quarter),
			fmt.Sprint(info.month), info.name, info.startKey,
		})
	}
	return csvio.WriteCSV(path, []string{
		"month_key", "month_label", "year", "quarter", "month", "month_name", "month_start_date_key",
	}, rows)
}

func writeFactGL(path string, entries []ledger.Entry, entityKey, accountKey map[string]int) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		accKey := ""
		if k, ok := accountKey[e.AccountCode]; ok {
			accKey = fmt.Sprint(k)
		}
		rows = append(rows, []string{
			dateKey(e.Date),
			monthKey(ledger.MonthOf(e.Date)),
			fmt.Sprint(entityKey[e.Entity]),
			accKey,
			e.AmountBase.StringFixed(2),
			e.TxnID,
			e.Description,
		})
	}
	return csvio.WriteCSV(path, []string{
		"date_key", "month_key", "entity_key", "account_key", "amount", "txn_id", "description",
	}, rows)
}

func writeFactKPI(path string, kpiRows []kpi.Row, entityKey map[string]int, month string) error {
	classes := kpi.Classifications(kpiRows)
	header := append([]string{"month_key", "entity_key"}, classes...)
	header = append(header, "gross_profit", "operating_profit", "gross_margin_pct", "operating_margin_pct")

	hundred := decimal.NewFromInt(100)
	rows := make([][]string, 0, len(kpiRows))
	for _, r := range kpiRows {
		record := []string{monthKey(month), fmt.Sprint(entityKey[r.Entity])}
		for _, c := range classes {
			record = append(record, r.Amount(c).StringFixed(2))
		}
		grossMargin, operatingMargin := "", ""
		if rev := r.Amount("Revenue"); !rev.IsZero() {
			grossMargin = r.GrossProfit.Div(rev).Mul(hundred).Round(4).String()
			operatingMargin = r.OperatingProfit.Div(rev).Mul(hundred).Round(4).String()
		}
		record = append(record, r.GrossProfit.StringFixed(2), r.OperatingProfit.StringFixed(2),
			grossMargin, operatingMargin)
		rows = append(rows, record)
	}
	return csvio.WriteCSV(path, header, rows)
}

func writeModelNotes(path, month string) error {
	notes := []string{
		"month=" + month,
		"",
		"Suggested BI relationships:",
		"  fact_gl[date_key] -> dim_date[date_key] (many-to-1)",
		"  fact_gl[entity_key] -> dim_entity[entity_key] (many-to-1)",
		"  fact_gl[account_key] -> dim_account[account_key] (many-to-1)",
		"  fact_gl[month_key] -> dim_month[month_key] (many-to-1, optional)",
		"  fact_kpi_monthly[entity_key] -> dim_entity[entity_key] (many-to-1)",
		"  fact_kpi_monthly[month_key] -> dim_month[month_key] (many-to-1)",
		"",
	}
	content := strings.Join(notes, "\n")
	return writeText(path, content)
}
