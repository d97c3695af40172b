package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog/log"

	"github.com/getsentry/callprof/internal/calltree"
	"github.com/getsentry/callprof/internal/logutil"
	"github.com/getsentry/callprof/internal/profiler"
	"github.com/getsentry/callprof/internal/speedscope"
	"github.com/getsentry/callprof/internal/tmpl"
)

type CLI struct {
	Data             string        `help:"YAML or JSON file holding the template data" short:"d" type:"existingfile"`
	Format           string        `default:"tree" enum:"tree,json,speedscope" help:"Call tree format" short:"f"`
	Output           string        `help:"Call tree output file, stderr when unset. Files ending in .lz4 are compressed" short:"o" type:"path"`
	MinExecutionTime time.Duration `help:"Drop frames that ran for less than this"`
	MaxDepth         int           `help:"Record at most this many levels, 0 for no limit"`
	LogLevel         string        `default:"warn" help:"Log level"`

	Pprof    string `default:"" enum:"${pprofModes}" help:"Profile the render with pprof"`
	PprofDir string `help:"pprof output directory" type:"path"`

	Template string `arg:"" help:"Template file" type:"existingfile"`
}

func (c *CLI) run(ctx context.Context, stdout, stderr io.Writer) error {
	defer startPprof(c.Pprof, c.PprofDir)()

	data, err := readData(c.Data)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(c.Template)
	if err != nil {
		return err
	}
	name := filepath.Base(c.Template)

	ctx, _ = profiler.Activate(ctx, "render "+name,
		profiler.WithLogger(logutil.DiagnosticsLogger(log.Logger, logutil.ParseLevel(c.LogLevel))),
		profiler.WithMaxDepth(c.MaxDepth),
		profiler.WithMinExecutionTime(c.MinExecutionTime),
	)
	output, err := tmpl.Render(ctx, name, string(src), data)
	profiler.Stop(ctx)
	root := profiler.Deactivate(ctx)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(stdout, output); err != nil {
		return err
	}
	return c.writeCallTree(stderr, name, root)
}

// readData decodes a YAML or JSON data file, JSON being a subset of YAML.
func readData(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func (c *CLI) writeCallTree(stderr io.Writer, name string, root *calltree.Node) error {
	if c.Output == "" {
		return encodeCallTree(stderr, c.Format, name, root)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var zw *lz4.Writer
	if strings.HasSuffix(c.Output, ".lz4") {
		zw = lz4.NewWriter(bw)
		w = zw
	}
	if err := encodeCallTree(w, c.Format, name, root); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func encodeCallTree(w io.Writer, format, name string, root *calltree.Node) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(root)
	case "speedscope":
		return json.NewEncoder(w).Encode(speedscope.FromCallTree(name, root))
	}
	return root.Print(w)
}
