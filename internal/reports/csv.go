package reports

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.flush()
	}
	return nil
}

func (s *csvStreamer) flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// amountCell renders exactly two fraction digits without grouping, suitable
// for spreadsheet import.
func amountCell(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// displayAmount renders a grouped human-readable figure for comment lines.
func displayAmount(d decimal.Decimal) string {
	p := message.NewPrinter(language.English)
	rounded := d.Round(2)
	units := rounded.Abs().IntPart()
	cents := rounded.Abs().Sub(decimal.NewFromInt(units)).Mul(decimal.NewFromInt(100)).IntPart()
	out := p.Sprintf("%d.%02d", units, cents)
	if rounded.IsNegative() {
		out = "-" + out
	}
	return out
}

// WriteTrialBalanceCSV streams a trial balance as CSV with metadata comments.
func WriteTrialBalanceCSV(w io.Writer, report TrialBalanceReport) error {
	s := newCSVStreamer(w)
	if err := s.writeComment("# Trial Balance"); err != nil {
		return err
	}
	if err := s.writeComment(fmt.Sprintf("# Window: %s .. %s",
		report.Window.Start.Format("2006-01-02"), report.Window.End.Format("2006-01-02"))); err != nil {
		return err
	}
	if err := s.writeComment(fmt.Sprintf("# Closing totals: debit %s, credit %s",
		displayAmount(report.Totals.ClosingDebit), displayAmount(report.Totals.ClosingCredit))); err != nil {
		return err
	}
	header := []string{"Account Code", "Account Name", "Opening Debit", "Opening Credit",
		"Period Debit", "Period Credit", "Closing Debit", "Closing Credit"}
	if err := s.writeRow(header); err != nil {
		return err
	}
	for _, row := range report.Rows {
		record := []string{
			row.AccountCode,
			row.AccountName,
			amountCell(row.OpeningDebit),
			amountCell(row.OpeningCredit),
			amountCell(row.PeriodDebit),
			amountCell(row.PeriodCredit),
			amountCell(row.ClosingDebit),
			amountCell(row.ClosingCredit),
		}
		if err := s.writeRow(record); err != nil {
			return err
		}
	}
	totals := []string{"TOTAL", "",
		amountCell(report.Totals.OpeningDebit),
		amountCell(report.Totals.OpeningCredit),
		amountCell(report.Totals.PeriodDebit),
		amountCell(report.Totals.PeriodCredit),
		amountCell(report.Totals.ClosingDebit),
		amountCell(report.Totals.ClosingCredit),
	}
	if err := s.writeRow(totals); err != nil {
		return err
	}
	return s.flush()
}

// WriteGeneralLedgerCSV streams one account's ledger as CSV.
func WriteGeneralLedgerCSV(w io.Writer, report GeneralLedgerReport) error {
	s := newCSVStreamer(w)
	if err := s.writeComment(fmt.Sprintf("# General Ledger: %s %s", report.AccountCode, report.AccountName)); err != nil {
		return err
	}
	if err := s.writeComment(fmt.Sprintf("# Window: %s .. %s",
		report.Window.Start.Format("2006-01-02"), report.Window.End.Format("2006-01-02"))); err != nil {
		return err
	}
	if err := s.writeComment(fmt.Sprintf("# Opening balance: %s", displayAmount(report.Opening))); err != nil {
		return err
	}
	if err := s.writeRow([]string{"Date", "Entry Number", "Journal", "Description", "Debit", "Credit", "Balance"}); err != nil {
		return err
	}
	for _, line := range report.Lines {
		record := []string{
			line.Date.Format("2006-01-02"),
			line.EntryNumber,
			line.JournalCode,
			line.Description,
			amountCell(line.Debit),
			amountCell(line.Credit),
			amountCell(line.Running),
		}
		if err := s.writeRow(record); err != nil {
			return err
		}
	}
	totals := []string{"", "", "", "TOTAL", amountCell(report.TotalDebit), amountCell(report.TotalCredit), amountCell(report.Closing)}
	if err := s.writeRow(totals); err != nil {
		return err
	}
	return s.flush()
}
