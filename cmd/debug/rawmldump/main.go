// rawmldump reads decompressed MOBI markup (rawml) and writes what X-Ray
// builder sees in it: paragraph index with byte positions, table of contents
// and, when terms are given, every located mention with its excerpt.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"xrb/cmd/debug/internal/dumputil"
	"xrb/rawml"
	"xrb/terms"
)

func main() {
	all := flag.Bool("all", false, "enable all dump flags (-blocks, -toc)")
	blocks := flag.Bool("blocks", false, "dump paragraph index into <file>-blocks.txt")
	toc := flag.Bool("toc", false, "dump table of contents into <file>-toc.txt")
	termsFile := flag.String("terms", "", "build X-Ray with terms from `FILE` and dump it into <file>-xray.txt")
	codePage := flag.String("codepage", rawml.DefaultCodePage, "markup code page (IANA name)")
	offset := flag.Int64("offset", 0, "correction added to every reported location")
	verbose := flag.Bool("verbose", false, "log warnings and debug messages to stderr")
	overwrite := flag.Bool("overwrite", false, "overwrite existing output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: rawmldump [-all] [-blocks] [-toc] [-terms file.yaml] [-codepage name] [-offset n] [-overwrite] <file.rawml> [outdir]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}
	if *all {
		*blocks = true
		*toc = true
	}
	if !*blocks && !*toc && *termsFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	defer func(startedAt time.Time) {
		fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", time.Since(startedAt))
	}(time.Now())

	log := zap.NewNop()
	if *verbose {
		log, _ = zap.NewDevelopment()
	}
	defer log.Sync()

	inPath := flag.Arg(0)
	outDir := flag.Arg(1)

	data, err := os.ReadFile(inPath)
	if err != nil {
		fail("read %s: %v", inPath, err)
	}
	codec, err := rawml.NewCodec(*codePage)
	if err != nil {
		fail("%v", err)
	}
	doc, err := rawml.Parse(data, codec)
	if err != nil {
		fail("parse %s: %v", inPath, err)
	}

	write := func(suffix, text string) {
		name, err := dumputil.WriteOutput(inPath, outDir, suffix, []byte(text), *overwrite)
		if err != nil {
			fail("%v", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", name)
	}

	if *blocks {
		write("-blocks.txt", dumputil.Blocks(doc))
	}
	if *toc {
		text, err := dumputil.Chapters(doc, log.Named("toc"))
		if err != nil {
			fail("table of contents: %v", err)
		}
		write("-toc.txt", text)
	}
	if *termsFile != "" {
		book, err := terms.LoadFile(*termsFile)
		if err != nil {
			fail("terms: %v", err)
		}
		text, err := dumputil.XRay(context.Background(), doc, book, *offset, log)
		if err != nil {
			fail("x-ray: %v", err)
		}
		write("-xray.txt", text)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
