package identification

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSniffBytes(t *testing.T) {
	tests := []struct {
		name    string
		head    []byte
		ext     string
		want    Format
		wantErr bool
	}{
		{"fits magic", []byte("SIMPLE  =                    T / conforms"), ".dat", FormatFITS, false},
		{"jcamp header", []byte("##TITLE= Hydrogen emission\n##JCAMP-DX= 4.24\n"), ".txt", FormatJCAMP, false},
		{"jcamp with leading whitespace", []byte("\n  ##TITLE= x\n"), "", FormatJCAMP, false},
		{"fits extension without magic", []byte{0x00, 0x01}, ".fits", FormatFITS, false},
		{"jdx extension", []byte("not obviously jcamp"), ".jdx", FormatJCAMP, false},
		{"ascii columns", []byte("# wavelength flux\n4000.0 1.2\n4001.0 1.3\n"), ".txt", FormatASCII, false},
		{"binary junk", []byte{0x89, 0x50, 0x4e, 0x47, 0x00}, ".png", "", true},
		{"empty", nil, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SniffBytes(tt.head, tt.ext)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SniffBytes() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SniffBytes() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("SniffBytes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSniffReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrum.csv")
	if err := os.WriteFile(path, []byte("wavelength,flux\n5000,0.5\n5001,0.6\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := Sniff(path)
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if got != FormatASCII {
		t.Fatalf("Sniff = %q, want %q", got, FormatASCII)
	}
}

func TestParseFormat(t *testing.T) {
	if f, ok := ParseFormat(" FITS "); !ok || f != FormatFITS {
		t.Fatalf("ParseFormat(FITS) = %q, %v", f, ok)
	}
	if _, ok := ParseFormat("csv"); ok {
		t.Fatal("ParseFormat(csv) should be unknown")
	}
}
