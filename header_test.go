package flate

import (
	"strings"
	"testing"
	"time"
)

func TestHeader_Validate(t *testing.T) {
	type testRow struct {
		name    string
		header  Header
		wantErr bool
	}

	testData := []testRow{
		{
			name:   "valid",
			header: Header{FileName: "report.txt", Comment: "hello", OSType: OSTypeUnix},
		},
		{
			name:    "filename too long",
			header:  Header{FileName: strings.Repeat("x", 256), OSType: OSTypeUnix},
			wantErr: true,
		},
		{
			name:    "filename contains slash",
			header:  Header{FileName: "dir/report.txt", OSType: OSTypeUnix},
			wantErr: true,
		},
		{
			name:    "filename contains NUL",
			header:  Header{FileName: "report\x00.txt", OSType: OSTypeUnix},
			wantErr: true,
		},
		{
			name:    "comment contains NUL",
			header:  Header{Comment: "hello\x00world", OSType: OSTypeUnix},
			wantErr: true,
		},
		{
			name:    "invalid OSType",
			header:  Header{OSType: OSType(200)},
			wantErr: true,
		},
		{
			name:    "last modified before epoch",
			header:  Header{OSType: OSTypeUnix, LastModified: time.Unix(-1, 0)},
			wantErr: true,
		},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			err := row.header.Validate()
			if row.wantErr && err == nil {
				t.Errorf("expected an error, got nil")
			}
			if !row.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestHeader_ValidateMultipleErrors(t *testing.T) {
	header := Header{
		FileName: "a/b\x00c",
		OSType:   OSTypeUnix,
	}
	err := header.Validate()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "NUL") || !strings.Contains(err.Error(), "'/'") {
		t.Errorf("expected multierror combining both problems, got: %v", err)
	}
}
