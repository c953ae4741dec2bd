// dtab builds a descriptor table from a TOML fixture and inspects it: it
// verifies the table, prints it, runs searches and can write a CBOR
// snapshot.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/descriptors/descriptors"
	"github.com/chazu/descriptors/manifest"
	"github.com/chazu/descriptors/snapshot"
)

func main() {
	configDir := flag.String("config", "", "Directory holding descriptors.toml (default: search upward from the working directory)")
	verbosity := flag.Int("v", -1, "Log verbosity (overrides the configuration)")
	slack := flag.Int("slack", -1, "Extra slack records (overrides the fixture and configuration)")
	searches := flag.String("search", "", "Comma-separated names to look up")
	snapshotPath := flag.String("snapshot", "", "Write a CBOR snapshot of the table to this file")
	enum := flag.Bool("enum", false, "Build the enumeration cache before printing")
	gc := flag.Bool("gc", false, "Run the background collector while working and report a final collection")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dtab [options] fixture.toml\n\n")
		fmt.Fprintf(os.Stderr, "Builds a descriptor table from a fixture, verifies it and prints it.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  dtab point.toml                  # Print the table\n")
		fmt.Fprintf(os.Stderr, "  dtab -search x,z point.toml      # Look up x and z\n")
		fmt.Fprintf(os.Stderr, "  dtab -snapshot out.cbor point.toml\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	commonlog.Configure(cfg.Log.Verbosity, nil)

	opts := options{
		fixture:  flag.Arg(0),
		slack:    *slack,
		snapshot: *snapshotPath,
		enum:     *enum,
		gc:       *gc,
	}
	if *searches != "" {
		opts.searches = strings.Split(*searches, ",")
	}
	if err := run(os.Stdout, cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	cfg, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = manifest.Default()
	}
	return cfg, nil
}

type options struct {
	fixture  string
	slack    int
	searches []string
	snapshot string
	enum     bool
	gc       bool
}

func run(w io.Writer, cfg *manifest.Manifest, opts options) error {
	f, err := LoadFixture(opts.fixture)
	if err != nil {
		return err
	}
	switch {
	case opts.slack >= 0:
		f.Slack = opts.slack
	case f.Slack == 0:
		f.Slack = cfg.Descriptors.DefaultSlack
	}

	rt, err := descriptors.NewRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	a, err := f.Build(rt)
	if err != nil {
		return err
	}
	if err := a.Verify(); err != nil {
		return fmt.Errorf("table failed verification: %w", err)
	}
	if opts.enum {
		rt.BuildEnumCache(a, a.NumberOfDescriptors())
	}
	// Started only once everything built is reachable from the rooted
	// table; until then fresh objects live only in Go variables.
	if opts.gc {
		rt.Collector().Start()
	}
	if err := a.Print(w); err != nil {
		return err
	}

	for _, name := range opts.searches {
		name = strings.TrimSpace(name)
		idx := a.SearchWithCache(rt.Intern(name), a.NumberOfDescriptors())
		if idx == descriptors.NotFound {
			fmt.Fprintf(w, "search %s: not found\n", name)
			continue
		}
		fmt.Fprintf(w, "search %s: %d (%s)\n", name, idx, a.GetDetails(idx))
	}
	if len(opts.searches) > 0 {
		fmt.Fprintf(w, "lookup cache hit rate: %.1f%%\n", rt.LookupCache().HitRate())
	}

	if opts.snapshot != "" {
		data, err := snapshot.Marshal(snapshot.FromArray(rt, a))
		if err != nil {
			return fmt.Errorf("cannot encode snapshot: %w", err)
		}
		if err := os.WriteFile(opts.snapshot, data, 0644); err != nil {
			return fmt.Errorf("cannot write snapshot: %w", err)
		}
		fmt.Fprintf(w, "wrote snapshot %s (%d bytes)\n", opts.snapshot, len(data))
	}

	if opts.gc {
		stats := rt.Collector().CollectNow()
		fmt.Fprintf(w, "collection: marked %d, swept %d, weak cleared %d, live %d bytes\n",
			stats.Marked, stats.Swept, stats.WeakCleared, stats.LiveBytes)
		if err := a.Verify(); err != nil {
			return fmt.Errorf("table failed verification after collection: %w", err)
		}
	}
	return nil
}
