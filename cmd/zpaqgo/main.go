// Command zpaqgo is a thin CLI driver over the internal/orchestrate
// package: compress, decompress, list, or browse an archive.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lookbusy1344/zpaqgo/internal/appconfig"
	"github.com/lookbusy1344/zpaqgo/internal/cfgcompile"
	"github.com/lookbusy1344/zpaqgo/internal/container"
	"github.com/lookbusy1344/zpaqgo/internal/digest"
	"github.com/lookbusy1344/zpaqgo/internal/inspector"
	"github.com/lookbusy1344/zpaqgo/internal/orchestrate"
)

// Version information; can be overridden at build time with
// -ldflags "-X main.Version=v1.2.3".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		compress    = flag.Bool("c", false, "Compress the given files into -out")
		decompress  = flag.Bool("d", false, "Decompress the given archive into the current directory")
		list        = flag.Bool("l", false, "List blocks and segments without decompressing")
		inspect     = flag.Bool("inspect", false, "Open a read-only TUI browser over the given archive")
		cfgPath     = flag.String("cfg", "", "Configuration file (overrides -method)")
		method      = flag.Int("method", 1, "Builtin configuration level (1-3), used when -cfg is not given")
		out         = flag.String("out", "", "Output archive path (compress) or directory (decompress)")
		checksum    = flag.Bool("checksum", true, "Append a digest trailer to each segment")
		configPath  = flag.String("config", "", "Path to zpaqgo's own settings file (default: platform config dir)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("zpaqgo %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp || flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	var appCfg *appconfig.Config
	var err error
	if *configPath != "" {
		appCfg, err = appconfig.LoadFrom(*configPath)
	} else {
		appCfg, err = appconfig.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}
	if !flagWasSet("checksum") {
		*checksum = appCfg.Compression.Checksum
	}
	if !flagWasSet("method") {
		*method = appCfg.Compression.DefaultLevel
	}

	switch {
	case *compress:
		if err := runCompress(flag.Args(), *cfgPath, *method, *out, *checksum, appCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *decompress:
		if err := runDecompress(flag.Arg(0), *out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *list:
		if err := runList(flag.Arg(0)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *inspect:
		if err := runInspect(flag.Arg(0)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		printHelp()
		os.Exit(0)
	}
}

// flagWasSet reports whether name was explicitly given on the command
// line rather than left at its default.
func flagWasSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func loadConfig(cfgPath string, method int) (*cfgcompile.Config, error) {
	var src string
	if cfgPath != "" {
		data, err := os.ReadFile(cfgPath) // #nosec G304 -- user-supplied config path, this is a CLI tool
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", cfgPath, err)
		}
		src = string(data)
	} else {
		var err error
		src, err = cfgcompile.BuiltinConfig(method)
		if err != nil {
			return nil, err
		}
	}
	return cfgcompile.Compile(src)
}

func runCompress(files []string, cfgPath string, method int, out string, checksum bool, appCfg *appconfig.Config) error {
	if len(files) == 0 {
		return fmt.Errorf("no input files given")
	}
	cfg, err := loadConfig(cfgPath, method)
	if err != nil {
		return err
	}
	if cfg.Header.PCOMP != nil {
		return fmt.Errorf("configuration declares PCOMP; this CLI does not invoke external preprocessors")
	}
	if mem := cfg.Header.Memory(); mem > float64(appCfg.Compression.MemoryCeiling) {
		return fmt.Errorf("configuration needs %.0f bytes of model memory, over the %d byte ceiling", mem, appCfg.Compression.MemoryCeiling)
	}

	var inputs []orchestrate.Input
	for _, f := range files {
		data, err := os.ReadFile(f) // #nosec G304 -- user-supplied path, this is a CLI tool
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}
		name := filepath.Base(f)
		comment := ""
		if appCfg.Archive.SizeComment {
			comment = container.FormatSizeComment(int64(len(data)), "")
		}
		inputs = append(inputs, orchestrate.Input{Name: name, Comment: comment, Data: data})
	}

	if out == "" {
		out = files[0] + ".zpaq"
	}
	mode := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	newArchive := true
	if appCfg.Archive.AppendBlocks {
		if st, err := os.Stat(out); err == nil && st.Size() > 0 {
			mode = os.O_WRONLY | os.O_CREATE | os.O_APPEND
			newArchive = false
		}
	}
	f, err := os.OpenFile(out, mode, 0644) // #nosec G304 -- user-supplied output path, this is a CLI tool
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if newArchive && appCfg.Archive.LocatorTag {
		if err := container.WriteLocatorTag(bw); err != nil {
			return err
		}
	}
	skipped, err := orchestrate.CompressBlock(bw, cfg, inputs, nil, checksum)
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", s)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

type fileHandler struct {
	f *os.File
	w *bufio.Writer
}

func (h *fileHandler) WriteByte(b byte) error { return h.w.WriteByte(b) }

func (h *fileHandler) Done(name, comment string, want, got *[digest.Size]byte) error {
	if err := h.w.Flush(); err != nil {
		return err
	}
	if err := h.f.Close(); err != nil {
		return err
	}
	if want != nil && got != nil && *want != *got {
		fmt.Fprintf(os.Stderr, "checksum mismatch for %s: expected %x, got %x\n", name, *want, *got)
	}
	return nil
}

func runDecompress(archive string, outDir string) error {
	if archive == "" {
		return fmt.Errorf("no archive given")
	}
	if outDir == "" {
		outDir = "."
	}
	f, err := os.Open(archive) // #nosec G304 -- user-supplied path, this is a CLI tool
	if err != nil {
		return err
	}
	defer f.Close()

	// Scan rather than requiring the magic at offset 0: the rolling-hash
	// search finds a bare "zPQ" at the start of the file as well as a
	// locator-tagged archive embedded after other data.
	r := bufio.NewReader(f)
	return orchestrate.DecompressEmbeddedArchive(r, func(name, comment string) (orchestrate.SegmentHandler, error) {
		if name == "" {
			name = "unnamed.out"
		}
		path := filepath.Join(outDir, filepath.Base(name))
		out, err := os.Create(path) // #nosec G304 -- derived from archive entry name, this is a CLI tool
		if err != nil {
			return nil, err
		}
		fmt.Printf("extracting %s (%s)\n", path, comment)
		return &fileHandler{f: out, w: bufio.NewWriter(out)}, nil
	})
}

func runList(archive string) error {
	if archive == "" {
		return fmt.Errorf("no archive given")
	}
	blocks, err := listArchive(archive)
	if err != nil {
		return err
	}
	for bi, b := range blocks {
		fmt.Printf("block %d: %d components, %d segments\n", bi, len(b.Header.Comps), len(b.Segments))
		for si, s := range b.Segments {
			digestStr := "(none)"
			if s.Digest != nil {
				digestStr = fmt.Sprintf("%x", *s.Digest)
			}
			fmt.Printf("  segment %d: %-20s %-20s %8d bytes  %s\n", si, s.Filename, s.Comment, s.Size, digestStr)
		}
	}
	return nil
}

func runInspect(archive string) error {
	if archive == "" {
		return fmt.Errorf("no archive given")
	}
	blocks, err := listArchive(archive)
	if err != nil {
		return err
	}
	return inspector.New(blocks).Run()
}

func listArchive(archive string) ([]container.BlockInfo, error) {
	f, err := os.Open(archive) // #nosec G304 -- user-supplied path, this is a CLI tool
	if err != nil {
		return nil, err
	}
	defer f.Close()
	blocks, err := container.ListBlocks(bufio.NewReader(f))
	if err != nil && err != io.EOF {
		return nil, err
	}
	return blocks, nil
}

func printHelp() {
	fmt.Println(`zpaqgo - a configurable, self-describing context-mixing archiver

Usage:
  zpaqgo -c -out archive.zpaq file1 [file2 ...]   Compress files into an archive
  zpaqgo -d -out dir archive.zpaq                 Decompress an archive
  zpaqgo -l archive.zpaq                          List blocks and segments
  zpaqgo -inspect archive.zpaq                     Browse an archive in a TUI

Flags:`)
	flag.PrintDefaults()
}
