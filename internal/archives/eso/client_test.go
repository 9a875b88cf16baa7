package eso

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spectra/internal/archives"
)

func productListing(accessURL string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<VOTABLE version="1.4">
  <RESOURCE type="results">
    <TABLE>
      <FIELD name="dp_id" datatype="char" arraysize="*"/>
      <FIELD name="instrument_name" datatype="char" arraysize="*"/>
      <FIELD name="access_url" datatype="char" arraysize="*"/>
      <DATA><TABLEDATA>
        <TR><TD>ADP.2020-06-26T09:51:01.123</TD><TD>UVES</TD><TD>%s</TD></TR>
      </TABLEDATA></DATA>
    </TABLE>
  </RESOURCE>
</VOTABLE>`, accessURL)
}

const emptyListing = `<?xml version="1.0"?>
<VOTABLE version="1.4">
  <RESOURCE type="results">
    <TABLE>
      <FIELD name="dp_id" datatype="char" arraysize="*"/>
      <FIELD name="instrument_name" datatype="char" arraysize="*"/>
      <FIELD name="access_url" datatype="char" arraysize="*"/>
      <DATA><TABLEDATA/></DATA>
    </TABLE>
  </RESOURCE>
</VOTABLE>`

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("SIMPLE  =  fake fits"))
	})
	mux.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		query := r.FormValue("query")
		if !strings.Contains(query, "ivoa.obscore") || !strings.Contains(query, "'vega'") {
			t.Errorf("query = %q", query)
		}
		_, _ = w.Write([]byte(productListing(server.URL + "/download")))
	})

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	product, err := client.Fetch(context.Background(), "Vega")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if product.Archive != "eso" || product.Query["dp_id"] != "ADP.2020-06-26T09:51:01.123" {
		t.Fatalf("product = %+v", product)
	}
	if len(product.Data) == 0 {
		t.Fatal("payload missing")
	}
}

func TestFetchNoProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptyListing))
	}))
	defer server.Close()

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Fetch(context.Background(), "nothing here")
	if !errors.Is(err, archives.ErrNoProduct) {
		t.Fatalf("err = %v, want ErrNoProduct", err)
	}
}

func TestDownloadRequiresAccessURL(t *testing.T) {
	client, err := New("http://unused.invalid")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Download(context.Background(), "vega", ProductInfo{}); err == nil {
		t.Fatal("expected error for missing access url")
	}
}
