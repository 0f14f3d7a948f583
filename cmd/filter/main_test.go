package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/content-filter/internal/bootstrap"
	"github.com/kirillkom/content-filter/internal/config"
)

func TestRunFiltersStdin(t *testing.T) {
	t.Setenv("FILTER_TERMS_FILE", "")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-threshold", "0.85"}, strings.NewReader("share the  secret\tplease"), &out)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := out.String(); got != "share the please\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunReadsInputFileAndCustomTerms(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	terms := filepath.Join(dir, "terms.yaml")
	if err := os.WriteFile(input, []byte("eat the banana now"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if err := os.WriteFile(terms, []byte("- banana\n"), 0o600); err != nil {
		t.Fatalf("write terms: %v", err)
	}

	var out bytes.Buffer
	err := run(context.Background(), []string{"-in", input, "-terms", terms, "-metric", "levenshtein", "-threshold", "1"}, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := out.String(); got != "eat the now\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunRejectsUnknownMetric(t *testing.T) {
	err := run(context.Background(), []string{"-metric", "soundex"}, strings.NewReader("x"), &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for unknown metric")
	}
}

func TestRunRejectsBinaryInput(t *testing.T) {
	err := run(context.Background(), nil, strings.NewReader("\xff\xfe"), &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for binary input")
	}
}

func TestRunUploadsToRemoteAPI(t *testing.T) {
	t.Setenv("FILTER_TERMS_FILE", "")
	app, err := bootstrap.New(context.Background(), config.Config{
		UploadQuotaBytes:  1 << 20,
		FilterMetric:      "jaro-winkler",
		FilterThreshold:   0.85,
		WorkerConcurrency: 1,
		ResultStore:       bootstrap.StoreMemory,
	}, nil)
	if err != nil {
		t.Fatalf("bootstrap.New() error = %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = app.Run(ctx) }()

	server := httptest.NewServer(app.Router())
	defer server.Close()

	var out bytes.Buffer
	args := []string{"-upload", server.URL, "-chunk-bytes", "6", "-wait", "3s"}
	if err := run(context.Background(), args, strings.NewReader("share the secret please"), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := out.String(); got != "share the please\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
