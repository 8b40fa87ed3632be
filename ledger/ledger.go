// Package ledger maintains the durable evidence report: an xlsx file with a
// fixed three-column schema, appended to across runs without ever touching
// prior rows. Sequence numbers stay contiguous over the whole lifetime of
// the file; a new run resumes from where the previous one stopped.
package ledger

import (
	"errors"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"orderproof/models"
)

const sheet = "Sheet1"

// Header labels, fixed by the CS report template the file is submitted as.
const (
	headerNo      = "No"
	headerOrderSN = "OrderSN/ Nomor Pesanan"
	headerProof   = "Bukti pembeli sudah menerima pesanan\n" +
		"- Screenshot yang menunjukkan pembeli sudah mengonfirmasi menerima produk non fisik. " +
		"Screenshot harus dari Chat di Shopee, screenshot dari platform lain (cth Whatsapp) tidak akan diproses\n" +
		"- Masukkan foto kedalam google drive dan salin ulang link kedalam kolom dibawah ini\n" +
		"- Pastikan google drive tidak terkunci sehingga dapat diakses oleh Tim Shopee"
)

// ErrCorrupt indicates an existing file at the ledger path does not carry
// the expected schema. Fatal: nothing is written to such a file.
type ErrCorrupt struct {
	Path   string
	Reason string
	Err    error
}

func (e ErrCorrupt) Error() string {
	return fmt.Sprintf("ledger_corrupt: %s: %s", e.Path, e.Reason)
}

func (e ErrCorrupt) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether err is a ledger schema failure.
func IsCorrupt(err error) bool {
	var corrupt ErrCorrupt
	return errors.As(err, &corrupt)
}

// Ledger is an open report with its resume cursor. Exclusively owned by
// one process at a time; no locking is taken.
type Ledger struct {
	path    string
	file    *excelize.File
	next    int
	created bool
}

// Open is the typed open-or-create: an absent path yields a fresh workbook
// with the header written and formatted once; an existing path is verified
// against the schema and its last occupied row becomes the resume cursor.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path cannot be empty")
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return openExisting(path)
	case errors.Is(err, os.ErrNotExist):
		return create(path)
	default:
		return nil, fmt.Errorf("stat ledger %q: %w", path, err)
	}
}

func create(path string) (*Ledger, error) {
	f := excelize.NewFile()

	for cell, value := range map[string]string{
		"A1": headerNo,
		"B1": headerOrderSN,
		"C1": headerProof,
	} {
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header cell %s: %w", cell, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", style); err != nil {
		f.Close()
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for col, width := range map[string]float64{"A": 5, "B": 20, "C": 100} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("set column %s width: %w", col, err)
		}
	}
	if err := f.SetRowHeight(sheet, 1, 80); err != nil {
		f.Close()
		return nil, fmt.Errorf("set header row height: %w", err)
	}

	return &Ledger{path: path, file: f, next: 1, created: true}, nil
}

func openExisting(path string) (*Ledger, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, ErrCorrupt{Path: path, Reason: "cannot open workbook", Err: err}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, ErrCorrupt{Path: path, Reason: fmt.Sprintf("missing sheet %s", sheet), Err: err}
	}
	if len(rows) == 0 {
		f.Close()
		return nil, ErrCorrupt{Path: path, Reason: "missing header row"}
	}

	header := rows[0]
	if cell(header, 0) != headerNo || cell(header, 1) != headerOrderSN {
		f.Close()
		return nil, ErrCorrupt{Path: path, Reason: "header row does not match report schema"}
	}

	// The cursor resumes after the last occupied row, not after the count
	// of occupied rows. A hand-edited file with an interior blank row must
	// still get its appends below everything that is already there.
	last := len(rows)
	for last > 1 && rowEmpty(rows[last-1]) {
		last--
	}

	return &Ledger{path: path, file: f, next: last}, nil
}

func rowEmpty(row []string) bool {
	for _, value := range row {
		if value != "" {
			return false
		}
	}
	return true
}

// NextSeq returns the sequence number the next appended entry will get.
func (l *Ledger) NextSeq() int {
	return l.next
}

// Created reports whether Open created a fresh file.
func (l *Ledger) Created() bool {
	return l.created
}

// Append writes one row at the cursor and advances it. Rows land in call
// order; prior rows are never rewritten.
func (l *Ledger) Append(orderID, link string) (models.LedgerEntry, error) {
	entry := models.LedgerEntry{Seq: l.next, OrderID: orderID, Link: link}
	row := l.next + 1 // row 1 is the header

	for col, value := range map[string]any{
		"A": entry.Seq,
		"B": entry.OrderID,
		"C": entry.Link,
	} {
		cellName := fmt.Sprintf("%s%d", col, row)
		if err := l.file.SetCellValue(sheet, cellName, value); err != nil {
			return models.LedgerEntry{}, fmt.Errorf("write ledger cell %s: %w", cellName, err)
		}
	}

	l.next++
	return entry, nil
}

// Save persists the workbook via a temp file and rename, so a crash
// mid-write cannot destroy the rows of previous runs.
func (l *Ledger) Save() error {
	tmp := l.path + ".tmp"
	if err := l.file.SaveAs(tmp); err != nil {
		return fmt.Errorf("save ledger %q: %w", l.path, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace ledger %q: %w", l.path, err)
	}
	return nil
}

// Close releases the workbook handle. It does not save.
func (l *Ledger) Close() error {
	return l.file.Close()
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
