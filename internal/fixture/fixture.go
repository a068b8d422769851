// Package fixture builds RÚIAN-shaped test inputs: header and data rows,
// Windows-1250 encoded tables and in-memory ZIP archives.
package fixture

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/charmap"

	"ruian/internal/address"
)

// ExportHeaders is the column order of the published export. It differs from
// address.Columns (Y before X) on purpose.
var ExportHeaders = []string{
	address.HeaderADMCode,
	address.HeaderTownCode,
	address.HeaderTown,
	address.HeaderCityPartCode,
	address.HeaderCityPart,
	address.HeaderPraguePartCode,
	address.HeaderPraguePart,
	address.HeaderTownPartCode,
	address.HeaderTownPart,
	address.HeaderStreetCode,
	address.HeaderStreet,
	address.HeaderObjectType,
	address.HeaderNumber,
	address.HeaderOrientationNumber,
	address.HeaderOrientationNumberSign,
	address.HeaderZipCode,
	address.HeaderLocationY,
	address.HeaderLocationX,
	address.HeaderValidSince,
}

// Row is one data row keyed by header name. Missing keys render as empty
// cells.
type Row map[string]string

// With returns a copy of r with header h set to v.
func (r Row) With(h, v string) Row {
	out := make(Row, len(r)+1)
	for k, val := range r {
		out[k] = val
	}
	out[h] = v
	return out
}

// GolcuvJenikov is the address point 9382372 on the town square of Golčův
// Jeníkov.
func GolcuvJenikov() Row {
	return Row{
		address.HeaderADMCode:      "9382372",
		address.HeaderTownCode:     "568449",
		address.HeaderTown:         "Golčův Jeníkov",
		address.HeaderTownPartCode: "67041",
		address.HeaderTownPart:     "Golčův Jeníkov",
		address.HeaderStreetCode:   "714151",
		address.HeaderStreet:       "Nám. T. G. Masaryka",
		address.HeaderObjectType:   "č.p.",
		address.HeaderNumber:       "110",
		address.HeaderZipCode:      "58282",
		address.HeaderLocationY:    "674313.86",
		address.HeaderLocationX:    "1075321.72",
		address.HeaderValidSince:   "2011-07-01",
	}
}

// Synthetic returns a valid row whose ADM code is id. Every third row is a
// Prague address with district columns; the others have no street.
func Synthetic(id int) Row {
	r := Row{
		address.HeaderADMCode:      strconv.Itoa(id),
		address.HeaderTownCode:     "500011",
		address.HeaderTown:         "Žďár nad Sázavou",
		address.HeaderTownPartCode: "413",
		address.HeaderTownPart:     "Žďár nad Sázavou 1",
		address.HeaderObjectType:   "č.p.",
		address.HeaderNumber:       strconv.Itoa(id%997 + 1),
		address.HeaderZipCode:      "59101",
		address.HeaderValidSince:   "2019-03-15",
	}
	if id%3 == 0 {
		r[address.HeaderTown] = "Praha"
		r[address.HeaderPraguePartCode] = "19"
		r[address.HeaderPraguePart] = "Praha 2"
		r[address.HeaderCityPartCode] = "500119"
		r[address.HeaderCityPart] = "Praha 2"
		r[address.HeaderStreetCode] = "459763"
		r[address.HeaderStreet] = "Šafaříkova"
		r[address.HeaderOrientationNumber] = strconv.Itoa(id%40 + 1)
		r[address.HeaderOrientationNumberSign] = "a"
		r[address.HeaderLocationY] = "-742104.5"
		r[address.HeaderLocationX] = "-1044386.25"
	}
	return r
}

// SyntheticRows returns n rows with ADM codes start, start+1, ...
func SyntheticRows(start, n int) []Row {
	out := make([]Row, n)
	for i := range out {
		out[i] = Synthetic(start + i)
	}
	return out
}

// Table renders rows as a ';'-separated, CRLF-terminated UTF-8 table under
// headers. Pass nil headers for ExportHeaders.
func Table(headers []string, rows []Row) string {
	if headers == nil {
		headers = ExportHeaders
	}
	var b strings.Builder
	b.WriteString(strings.Join(headers, ";"))
	b.WriteString("\r\n")
	cells := make([]string, len(headers))
	for _, r := range rows {
		for i, h := range headers {
			cells[i] = r[h]
		}
		b.WriteString(strings.Join(cells, ";"))
		b.WriteString("\r\n")
	}
	return b.String()
}

// Encode1250 encodes s as Windows-1250. It panics on characters outside the
// code page; fixtures are static.
func Encode1250(s string) []byte {
	b, err := charmap.Windows1250.NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(fmt.Sprintf("fixture: encode windows-1250: %v", err))
	}
	return b
}

// MethodZstd is the ZIP method id for Zstandard.
const MethodZstd uint16 = 93

// Entry is one file to place in a ZIP.
type Entry struct {
	Name   string
	Data   []byte
	Method uint16 // zip.Store, zip.Deflate or MethodZstd
}

// Zip builds an archive from entries, in the given order.
func Zip(entries ...Entry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(MethodZstd, zstd.ZipCompressor())
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: e.Method})
		if err != nil {
			panic(fmt.Sprintf("fixture: zip header %s: %v", e.Name, err))
		}
		if _, err := w.Write(e.Data); err != nil {
			panic(fmt.Sprintf("fixture: zip write %s: %v", e.Name, err))
		}
	}
	if err := zw.Close(); err != nil {
		panic(fmt.Sprintf("fixture: zip close: %v", err))
	}
	return buf.Bytes()
}

// TableEntry renders rows as an encoded, deflated ZIP entry.
func TableEntry(name string, rows []Row) Entry {
	return Entry{Name: name, Data: Encode1250(Table(nil, rows)), Method: zip.Deflate}
}
