// Command mash evaluates a drawing script, inflates its layers into a
// 3D mesh, applies the script's deformations and prints the per-layer
// meshes as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("mash: ")

	out := flag.String("o", "", "write the JSON result to `file` instead of stdout")
	indent := flag.Bool("indent", false, "indent the JSON output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: mash [-o file] [-indent] script.mash\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, flag.Arg(0), *out, *indent)
	stop()
	os.Exit(code)
}

// run evaluates the script at path ("-" reads stdin) and writes the
// result. It returns the process exit code: 1 when the script produced
// errors, ctx ended first, or the result could not be written.
func run(ctx context.Context, path, out string, indent bool) int {
	var (
		src []byte
		err error
	)
	if path == "-" {
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		log.Print(err)
		return 1
	}

	result := NewApp().EvaluateContext(ctx, string(src))
	for _, w := range result.Warnings {
		log.Printf("warning: %s", w.Message)
	}

	w := io.Writer(os.Stdout)
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			log.Print(err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := writeResult(w, result, indent); err != nil {
		log.Print(err)
		return 1
	}
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}

func writeResult(w io.Writer, result EvalResult, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}
