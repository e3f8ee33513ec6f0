package gcsuploader

import (
	"testing"
	"time"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://ledger-raw/raw/alice/statement.csv", wantBucket: "ledger-raw", wantObject: "raw/alice/statement.csv"},
		{uri: "s3://bucket/key", wantErr: true},
		{uri: "gs://bucket-only", wantErr: true},
		{uri: "gs://bucket/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI() = %q, %q", bucket, object)
			}
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	if got := ExtractFilenameFromGCSURI("gs://b/raw/alice/2024/01/1-statement.csv"); got != "1-statement.csv" {
		t.Errorf("got %q", got)
	}
	if got := ExtractFilenameFromGCSURI("gs://bucket"); got != "bucket" {
		t.Errorf("got %q", got)
	}
}

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		file string
		want string
	}{
		{"statement.csv", "raw/alice/2024/03/1709632800000000000-statement.csv"},
		{`C:\Users\me\sms.txt`, "raw/alice/2024/03/1709632800000000000-sms.txt"},
		{"", "raw/alice/2024/03/1709632800000000000-payload"},
	}
	for _, tt := range tests {
		if got := ObjectName("alice", tt.file, at); got != tt.want {
			t.Errorf("ObjectName(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
