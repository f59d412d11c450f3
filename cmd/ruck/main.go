// Command ruck builds and inspects asset bundles: it packs a manifest's
// textures and files into a single archive file, and reads back entries
// from an existing one.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pspoerri/ruck/internal/bundle"
	"github.com/pspoerri/ruck/internal/manifest"
	"github.com/pspoerri/ruck/internal/texture"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "bundle":
		err = runBundle(os.Args[2:])
	case "cat":
		err = runCat(os.Args[2:])
	case "ls":
		err = runLs(os.Args[2:])
	case "help":
		runHelp(os.Args[2:])
		return
	default:
		fmt.Fprintf(os.Stderr, "ruck: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Printf("ruck %s: %v", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ruck <command> [arguments]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	fmt.Fprintln(os.Stderr, "  bundle <manifest> <bundlefile> [--prefix <dir>] [--verbose]")
	fmt.Fprintln(os.Stderr, "  cat <bundlefile> <name> [--texture]")
	fmt.Fprintln(os.Stderr, "  ls <bundlefile>")
	fmt.Fprintln(os.Stderr, "  help <command>")
}

func runHelp(args []string) {
	if len(args) == 0 {
		usage()
		return
	}
	switch args[0] {
	case "bundle":
		fmt.Println("ruck bundle <manifest> <bundlefile> [--prefix <dir>] [--verbose]")
		fmt.Println("  Build or update <bundlefile> from <manifest>. <manifest> of \"-\" reads stdin.")
		fmt.Println("  --prefix defaults to the manifest's own directory.")
	case "cat":
		fmt.Println("ruck cat <bundlefile> <name> [--texture]")
		fmt.Println("  Write an entry's raw bytes to stdout. --texture writes only the")
		fmt.Println("  encoded composite page of a texture entry.")
	case "ls":
		fmt.Println("ruck ls <bundlefile>")
		fmt.Println("  List entry names, one per line, in insertion order.")
	default:
		fmt.Fprintf(os.Stderr, "ruck help: unknown command %q\n", args[0])
	}
}

func runBundle(args []string) error {
	fs := flag.NewFlagSet("bundle", flag.ExitOnError)
	prefix := fs.String("prefix", "", "base directory for manifest-relative paths and globs (default: manifest's directory)")
	verbose := fs.Bool("verbose", false, "log new/updating/up-to-date decisions per entry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: ruck bundle <manifest> <bundlefile> [--prefix <dir>] [--verbose]")
	}
	manifestPath, bundlePath := fs.Arg(0), fs.Arg(1)

	var data []byte
	var err error
	if manifestPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(manifestPath)
	}
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	m, err := manifest.ParseManifest(data)
	if err != nil {
		return err
	}

	base := *prefix
	if base == "" && manifestPath != "-" {
		base = filepath.Dir(manifestPath)
	}

	b, err := bundle.Open(bundlePath)
	if err != nil {
		return fmt.Errorf("opening bundle: %w", err)
	}

	d := &manifest.Driver{Bundle: b, Prefix: base, Verbose: *verbose}
	runErr := d.Run(m)

	// Flush and close on every exit path, even when entry processing
	// failed partway through.
	if closeErr := b.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	return runErr
}

func runCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	asTexture := fs.Bool("texture", false, "write only the encoded composite page of a texture entry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: ruck cat <bundlefile> <name> [--texture]")
	}
	bundlePath, name := fs.Arg(0), fs.Arg(1)

	// bundle.Open tries to take the exclusive lock; Close always rewrites
	// the entry table and header, so this read-only command still flushes
	// the bundle file on exit.
	b, err := bundle.Open(bundlePath)
	if err != nil {
		return fmt.Errorf("opening bundle: %w", err)
	}
	defer b.Close()

	entry, err := b.MustFind(name)
	if err != nil {
		return err
	}

	if !*asTexture {
		data, err := b.ReadAll(entry)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	payload, err := b.OpenTexturePayload(entry)
	if err != nil {
		return err
	}
	t, err := texture.Deserialize(payload)
	if err != nil {
		return err
	}
	if len(t.Pages) == 0 {
		return fmt.Errorf("texture %q has no pages", name)
	}
	_, err = os.Stdout.Write(t.Pages[0].Encoded)
	return err
}

func runLs(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ruck ls <bundlefile>")
	}

	// Same read-only-but-still-flushes shape as runCat, above.
	b, err := bundle.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("opening bundle: %w", err)
	}
	defer b.Close()

	for _, e := range b.GetFiles() {
		fmt.Println(b.FileName(e))
	}
	return nil
}
