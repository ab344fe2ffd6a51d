// Package writer serializes export rows to the delimited text payload.
package writer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/archeus/mt940-merger/internal/export"
)

// Header is the literal column header row of the export format.
const Header = "numar cont,data procesarii,suma,valuta,tip tranzactie," +
	"nume beneficiar/ordonator,adresa beneficiar/ordonator," +
	"cont beneficiar/ordonator,banca beneficiar/ordonator," +
	"detalii tranzactie,sold intermediar,CUI Contrapartida"

// CSVWriter writes export rows in the fixed twelve-column format.
//
// Fields are comma-joined with no quoting and no escaping of embedded
// delimiters. That is the external file contract; changing it would alter
// what downstream consumers parse. Only embedded line breaks are replaced,
// since a raw newline would break the row structure itself.
type CSVWriter struct{}

// WriteToFile writes the rows to a file at the given path.
func (w *CSVWriter) WriteToFile(path string, rows []export.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, rows)
}

// Write writes the header and one line per row to out.
func (w *CSVWriter) Write(out io.Writer, rows []export.Row) error {
	var b strings.Builder
	b.WriteString(Header)
	for _, row := range rows {
		b.WriteByte('\n')
		fields := row.Fields()
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(sanitizeField(f))
		}
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(out, b.String()); err != nil {
		return fmt.Errorf("failed to write CSV payload: %w", err)
	}
	return nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func sanitizeField(s string) string {
	return lineBreaks.Replace(s)
}
