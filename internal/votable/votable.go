package votable

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Field describes one declared column.
type Field struct {
	Name     string `xml:"name,attr"`
	Datatype string `xml:"datatype,attr"`
	Unit     string `xml:"unit,attr"`
	UCD      string `xml:"ucd,attr"`
}

// Table holds the first TABLE of a VOTable response.
type Table struct {
	Fields []Field
	Rows   [][]string
}

type document struct {
	Resources []struct {
		Tables []struct {
			Fields []Field `xml:"FIELD"`
			Data   struct {
				TableData struct {
					Rows []struct {
						Cells []string `xml:"TD"`
					} `xml:"TR"`
				} `xml:"TABLEDATA"`
			} `xml:"DATA"`
		} `xml:"TABLE"`
	} `xml:"RESOURCE"`
}

// Parse decodes a VOTable document and returns its first table.
func Parse(r io.Reader) (*Table, error) {
	var doc document
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode votable: %w", err)
	}
	for _, res := range doc.Resources {
		for _, tbl := range res.Tables {
			out := &Table{Fields: tbl.Fields}
			for _, row := range tbl.Data.TableData.Rows {
				cells := make([]string, len(row.Cells))
				for i, c := range row.Cells {
					cells[i] = strings.TrimSpace(c)
				}
				out.Rows = append(out.Rows, cells)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("votable has no TABLE element")
}

// ColumnIndex finds a field by case-insensitive name. Returns -1 when
// absent.
func (t *Table) ColumnIndex(name string) int {
	for i, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// Column extracts one named column as strings.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not present", name)
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx >= len(row) {
			return nil, fmt.Errorf("row has %d cells, column %q is index %d", len(row), name, idx)
		}
		out = append(out, row[idx])
	}
	return out, nil
}

// FloatColumn extracts one named column as floats. Empty or non-numeric
// cells are errors; rows must be complete.
func (t *Table) FloatColumn(name string) ([]float64, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Unit returns the declared unit of a named field, or "".
func (t *Table) Unit(name string) string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return ""
	}
	return t.Fields[idx].Unit
}
