// Command analyze submits an image to a running analyzer service and prints
// the result. With -local the analysis runs in process instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/example/geoint-analyzer/internal/analyzer"
	"github.com/example/geoint-analyzer/internal/uploader"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the analyzer service")
	token := flag.String("token", "", "bearer token, for services running with auth enabled")
	local := flag.Bool("local", false, "analyze the image in process instead of calling the service")
	jsonOut := flag.Bool("json", false, "with -local, print the full analysis as JSON instead of the summary")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: analyze [flags] <image-path>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	if *local {
		if err := runLocal(path, *jsonOut); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := runRemote(path, *server, *token); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runLocal(path string, jsonOut bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	analysis, err := analyzer.Analyze(filepath.Base(path), data)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	fmt.Printf("Analysis summary for %s:\n%s\n", analysis.File, analysis.Summary)
	return nil
}

func runRemote(path, server, token string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	view := &consoleView{
		out: os.Stdout,
		file: &uploader.SelectedFile{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Data:        data,
		},
	}

	endpoint := strings.TrimRight(server, "/") + "/analyze"
	opts := []uploader.Option{}
	if token != "" {
		opts = append(opts, uploader.WithAuthToken(token))
	}
	ctrl := uploader.NewController(endpoint, view, logger, opts...)

	if state := ctrl.Submit(context.Background()); state != uploader.StateSuccess {
		return fmt.Errorf("analysis did not succeed (state %s)", state)
	}
	return nil
}

// consoleView renders controller updates on the terminal: status lines as
// they arrive, the pretty-printed result once available.
type consoleView struct {
	out  io.Writer
	file *uploader.SelectedFile
}

func (v *consoleView) SelectedFile() *uploader.SelectedFile { return v.file }

func (v *consoleView) SetStatus(status string) {
	fmt.Fprintln(v.out, status)
}

func (v *consoleView) ShowResult(pretty string) {
	fmt.Fprintln(v.out, pretty)
}

func (v *consoleView) HideResult() {}
