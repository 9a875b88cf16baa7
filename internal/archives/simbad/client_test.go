package simbad

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const vegaResponse = `<?xml version="1.0"?>
<VOTABLE version="1.4">
  <RESOURCE type="results">
    <TABLE>
      <FIELD name="main_id" datatype="char" arraysize="*"/>
      <FIELD name="ra" datatype="double" unit="deg"/>
      <FIELD name="dec" datatype="double" unit="deg"/>
      <FIELD name="otype_txt" datatype="char" arraysize="*"/>
      <FIELD name="sp_type" datatype="char" arraysize="*"/>
      <DATA><TABLEDATA>
        <TR><TD>* alf Lyr</TD><TD>279.23473479</TD><TD>38.78368896</TD><TD>dS*</TD><TD>A0Va</TD></TR>
      </TABLEDATA></DATA>
    </TABLE>
  </RESOURCE>
</VOTABLE>`

const emptyResponse = `<?xml version="1.0"?>
<VOTABLE version="1.4">
  <RESOURCE type="results">
    <TABLE>
      <FIELD name="main_id" datatype="char" arraysize="*"/>
      <FIELD name="ra" datatype="double"/>
      <FIELD name="dec" datatype="double"/>
      <FIELD name="otype_txt" datatype="char" arraysize="*"/>
      <FIELD name="sp_type" datatype="char" arraysize="*"/>
      <DATA><TABLEDATA/></DATA>
    </TABLE>
  </RESOURCE>
</VOTABLE>`

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sync" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if lang := r.FormValue("lang"); lang != "adql" {
			t.Errorf("lang = %q", lang)
		}
		_, _ = w.Write([]byte(vegaResponse))
	}))
	defer server.Close()

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	obj, err := client.Resolve(context.Background(), "Vega")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if obj.MainID != "* alf Lyr" || obj.SpectralType != "A0Va" {
		t.Fatalf("obj = %+v", obj)
	}
	if obj.RA < 279 || obj.RA > 280 || obj.Dec < 38 || obj.Dec > 39 {
		t.Fatalf("coordinates = (%g, %g)", obj.RA, obj.Dec)
	}
}

func TestResolveNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptyResponse))
	}))
	defer server.Close()

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Resolve(context.Background(), "no such star")
	if !errors.Is(err, ErrNotResolved) {
		t.Fatalf("err = %v, want ErrNotResolved", err)
	}
}

func TestResolveServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Resolve(context.Background(), "vega"); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestResolveEmptyName(t *testing.T) {
	client, err := New("http://unused.invalid")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Resolve(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty name")
	}
}
