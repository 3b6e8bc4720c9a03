// docgen is the command-line client for the document-generation service:
// upload inputs, wait for parsing, run a generation task with live
// progress, and download the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lessonforge/docgen-client/internal/client"
	"github.com/lessonforge/docgen-client/internal/config"
	"github.com/lessonforge/docgen-client/internal/models"
)

const usage = `Usage: docgen [-config path] <command> [args]

Commands:
  files                          list tracked files
  upload <category>=<path> ...   upload files (schedule, syllabus, template)
  delete <file-id>               delete an uploaded file
  generate [start-end]           run a generation task and wait for it
  results                        list generated documents
  download <filename> ... | all  download generated documents
`

func main() {
	configPath := flag.String("config", "docgen.yaml", "config file path")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sink := newConsoleSink()
	sess, err := client.NewSession(cfg, sink)
	if err != nil {
		fmt.Printf("Failed to create session: %v\n", err)
		os.Exit(1)
	}
	sess.Start(ctx)
	defer sess.Close()

	if err := run(ctx, cfg, sess, sink, args[0], args[1:]); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, sess *client.Session, sink *consoleSink, command string, args []string) error {
	switch command {
	case "files":
		return cmdFiles(sess)
	case "upload":
		return cmdUpload(ctx, sess, args)
	case "delete":
		return cmdDelete(ctx, sess, args)
	case "generate":
		return cmdGenerate(ctx, sess, sink, args)
	case "results":
		return cmdResults(ctx, sess)
	case "download":
		return cmdDownload(ctx, cfg, sess, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdFiles(sess *client.Session) error {
	files := sess.Files()
	if len(files) == 0 {
		fmt.Println("No files uploaded")
		return nil
	}

	for _, f := range files {
		fmt.Printf("%-36s  %-8s  %-8s  %s\n", f.FileID, f.Category, f.Status, f.Name)
		if f.ErrorMessage != "" {
			fmt.Printf("%38s%s\n", "", f.ErrorMessage)
		}
	}
	return nil
}

// cmdUpload transfers every category=path pair concurrently, then waits
// for the automatic parses to settle before reporting readiness.
func cmdUpload(ctx context.Context, sess *client.Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("upload needs at least one <category>=<path> argument")
	}

	var g errgroup.Group
	for _, arg := range args {
		category, path, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("argument %q must be <category>=<path>", arg)
		}
		cat, err := models.ParseCategory(category)
		if err != nil {
			return err
		}

		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			_, err = sess.Uploads.Upload(ctx, cat, filepath.Base(path), info.Size(), f)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	waitForParses(ctx, sess)
	if sess.Ready() {
		fmt.Println("Ready to generate")
	}
	return nil
}

// waitForParses blocks until no tracked file is mid-parse or uploaded and
// pending its automatic parse.
func waitForParses(ctx context.Context, sess *client.Session) {
	for {
		settled := true
		for _, f := range sess.Files() {
			if f.Status == models.FileStatusParsing || f.Status == models.FileStatusUploaded {
				settled = false
				break
			}
		}
		if settled {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func cmdDelete(ctx context.Context, sess *client.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete needs exactly one file id")
	}
	return sess.Uploads.Delete(ctx, args[0])
}

func cmdGenerate(ctx context.Context, sess *client.Session, sink *consoleSink, args []string) error {
	weekRange := ""
	if len(args) > 0 {
		weekRange = args[0]
	}

	taskID, err := sess.StartGeneration(ctx, weekRange)
	if err != nil {
		return err
	}
	fmt.Printf("Task %s started\n", taskID)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case task := <-sink.done:
		if task.Status != models.TaskStatusCompleted {
			return fmt.Errorf("generation ended with status %s", task.Status)
		}
		return nil
	}
}

func cmdResults(ctx context.Context, sess *client.Session) error {
	results, err := sess.Results(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No generated documents")
		return nil
	}

	for _, r := range results {
		fmt.Printf("%-40s  %8d bytes  %s\n",
			r.Filename, r.Size, r.CreatedTime().Format(time.RFC3339))
	}
	return nil
}

// cmdDownload fetches the named documents, or every document when the
// single argument "all" is given, into the configured download directory.
func cmdDownload(ctx context.Context, cfg *config.Config, sess *client.Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("download needs filenames or \"all\"")
	}

	names := args
	if len(args) == 1 && args[0] == "all" {
		results, err := sess.Results(ctx)
		if err != nil {
			return err
		}
		names = names[:0]
		for _, r := range results {
			names = append(names, r.Filename)
		}
	}

	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range names {
		g.Go(func() error {
			out, err := os.Create(filepath.Join(cfg.DownloadDir, filepath.Base(name)))
			if err != nil {
				return err
			}
			defer out.Close()

			n, err := sess.Download(gctx, name, out)
			if err != nil {
				return err
			}
			fmt.Printf("Downloaded %s (%d bytes)\n", name, n)
			return nil
		})
	}
	return g.Wait()
}
