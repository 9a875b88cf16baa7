package sdss

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spectra/internal/archives"
)

const searchResponse = `[{"TableName":"Table1","Rows":[
  {"specObjID":"299489676975171584","plate":266,"mjd":51630,"fiberID":9,"class":"STAR","z":0.0001}
]}]`

type fixedResolver struct {
	ra, dec float64
	err     error
}

func (f fixedResolver) ResolveCoordinates(ctx context.Context, name string) (float64, float64, error) {
	return f.ra, f.dec, f.err
}

func newTestServers(t *testing.T, searchBody string) (*httptest.Server, *httptest.Server) {
	t.Helper()
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/SearchTools/SqlSearch") {
			http.NotFound(w, r)
			return
		}
		if cmd := r.URL.Query().Get("cmd"); !strings.Contains(cmd, "fGetNearbySpecObjEq") {
			t.Errorf("cmd = %q", cmd)
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	spectrum := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("plateid") != "266" || q.Get("mjd") != "51630" || q.Get("fiberid") != "9" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("SIMPLE  =  fake fits"))
	}))
	t.Cleanup(search.Close)
	t.Cleanup(spectrum.Close)
	return search, spectrum
}

func TestFetchByName(t *testing.T) {
	search, spectrum := newTestServers(t, searchResponse)

	client, err := New(search.URL,
		WithSpectrumBaseURL(spectrum.URL),
		WithResolver(fixedResolver{ra: 180.1, dec: 0.5}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	product, err := client.Fetch(context.Background(), "some star")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if product.Archive != "sdss" || product.FileName != "spec-0266-51630-0009.fits" {
		t.Fatalf("product = %+v", product)
	}
	if product.Query["plate"] != "266" {
		t.Fatalf("query = %v", product.Query)
	}
}

func TestSearchNearestNoRows(t *testing.T) {
	search, _ := newTestServers(t, `[{"TableName":"Table1","Rows":[]}]`)

	client, err := New(search.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.SearchNearest(context.Background(), 10, 10, 1)
	if !errors.Is(err, archives.ErrNoProduct) {
		t.Fatalf("err = %v, want ErrNoProduct", err)
	}
}

func TestFetchWithoutResolver(t *testing.T) {
	client, err := New("http://unused.invalid")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Fetch(context.Background(), "vega"); err == nil {
		t.Fatal("expected error without resolver")
	}
}

func TestFetchResolverFailure(t *testing.T) {
	client, err := New("http://unused.invalid",
		WithResolver(fixedResolver{err: errors.New("resolver down")}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Fetch(context.Background(), "vega"); err == nil {
		t.Fatal("expected resolver error to propagate")
	}
}
