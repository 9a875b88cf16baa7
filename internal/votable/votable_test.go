package votable

import (
	"strings"
	"testing"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<VOTABLE version="1.4" xmlns="http://www.ivoa.net/xml/VOTable/v1.3">
  <RESOURCE type="results">
    <TABLE>
      <FIELD name="main_id" datatype="char" arraysize="*"/>
      <FIELD name="ra" datatype="double" unit="deg" ucd="pos.eq.ra"/>
      <FIELD name="dec" datatype="double" unit="deg" ucd="pos.eq.dec"/>
      <DATA>
        <TABLEDATA>
          <TR><TD>* alf Lyr</TD><TD>279.2347</TD><TD>38.7837</TD></TR>
          <TR><TD>HD 209458</TD><TD>330.7950</TD><TD>18.8842</TD></TR>
        </TABLEDATA>
      </DATA>
    </TABLE>
  </RESOURCE>
</VOTABLE>`

func TestParse(t *testing.T) {
	table, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(table.Fields) != 3 || len(table.Rows) != 2 {
		t.Fatalf("fields=%d rows=%d", len(table.Fields), len(table.Rows))
	}

	ids, err := table.Column("MAIN_ID")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if ids[0] != "* alf Lyr" || ids[1] != "HD 209458" {
		t.Fatalf("ids = %v", ids)
	}

	ra, err := table.FloatColumn("ra")
	if err != nil {
		t.Fatalf("FloatColumn: %v", err)
	}
	if ra[0] != 279.2347 || ra[1] != 330.7950 {
		t.Fatalf("ra = %v", ra)
	}

	if unit := table.Unit("dec"); unit != "deg" {
		t.Fatalf("unit = %q", unit)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader("<VOTABLE></VOTABLE>")); err == nil {
		t.Fatal("expected error for table-less document")
	}
	if _, err := Parse(strings.NewReader("not xml at all")); err == nil {
		t.Fatal("expected error for malformed xml")
	}

	table, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := table.Column("missing"); err == nil {
		t.Fatal("expected error for unknown column")
	}
	if _, err := table.FloatColumn("main_id"); err == nil {
		t.Fatal("expected error for non-numeric column")
	}
}
