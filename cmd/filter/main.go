// Command filter scrubs banned terms from a file or stdin and prints the
// result. By default it filters locally with the FILTER_* configuration used
// by the api; with -upload it sends the text to a running api in chunks and
// waits for the filtered result instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kirillkom/content-filter/internal/adapters/httpclient"
	"github.com/kirillkom/content-filter/internal/bootstrap"
	"github.com/kirillkom/content-filter/internal/config"
	"github.com/kirillkom/content-filter/internal/infrastructure/chunking"
	"github.com/kirillkom/content-filter/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/content-filter/internal/infrastructure/resilience"
	"github.com/kirillkom/content-filter/internal/observability/logging"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "filter:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	in := fs.String("in", "", "input file (default stdin)")
	threshold := fs.Float64("threshold", cfg.FilterThreshold, "similarity threshold in [0,1]")
	metric := fs.String("metric", cfg.FilterMetric, "similarity metric: jaro-winkler or levenshtein")
	terms := fs.String("terms", cfg.FilterTermsFile, "YAML file with banned terms")
	upload := fs.String("upload", "", "base URL of a running api; filter remotely instead of locally")
	chunkBytes := fs.Int("chunk-bytes", chunking.DefaultMaxBytes, "maximum chunk size for -upload")
	wait := fs.Duration("wait", time.Minute, "how long to wait for the remote result")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.FilterMetric = *metric
	cfg.FilterTermsFile = *terms

	logger := logging.NewJSONLoggerTo(os.Stderr, bootstrap.ServiceFilter, cfg.LogLevel)
	slog.SetDefault(logger)

	src, name := stdin, "stdin"
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		src, name = f, *in
	}
	text, err := plaintext.Read(src, name)
	if err != nil {
		return err
	}

	var filtered string
	if *upload != "" {
		filtered, err = filterRemote(ctx, cfg, *upload, text, *chunkBytes, *wait)
	} else {
		filtered, err = filterLocal(cfg, logger, text, *threshold)
	}
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(stdout, filtered); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func filterLocal(cfg config.Config, logger *slog.Logger, text string, threshold float64) (string, error) {
	engine, err := bootstrap.NewFilterEngine(cfg, logger)
	if err != nil {
		return "", err
	}
	return engine.Filter(text, threshold), nil
}

// filterRemote uses the api's own threshold; -threshold only applies locally.
func filterRemote(ctx context.Context, cfg config.Config, baseURL, text string, chunkBytes int, wait time.Duration) (string, error) {
	client := httpclient.New(baseURL, httpclient.Options{
		ChunkBytes:     chunkBytes,
		ResilienceExec: resilience.NewExecutor(bootstrap.ResilienceConfig(cfg)),
	})

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	id, sent, err := client.Upload(ctx, text)
	if err != nil {
		return "", err
	}
	slog.Info("document_uploaded", "upload_id", id, "chunks", sent, "bytes", len(text))

	return client.Await(ctx, id, httpclient.DefaultPollInterval)
}
