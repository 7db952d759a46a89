// Command ingest stores financial documents as attachments and publishes
// an attachment-received event per file. It either walks a directory once
// or, with -watch, keeps polling it for new files and archives each file
// it ingested into a processed/ subdirectory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/prismintel/finpipe/internal/config"
	"github.com/prismintel/finpipe/internal/core/domain"
	"github.com/prismintel/finpipe/internal/core/ports"
	"github.com/prismintel/finpipe/internal/infrastructure/queue/nats"
	"github.com/prismintel/finpipe/internal/infrastructure/storage/localfs"
	"github.com/prismintel/finpipe/internal/observability/logging"
)

const processedDirName = "processed"

// publisher is the slice of the message queue the ingest command needs.
type publisher interface {
	PublishAttachmentReceived(ctx context.Context, event ports.AttachmentEvent) error
}

type ingestor struct {
	store      *localfs.AttachmentStore
	queue      publisher
	logger     *slog.Logger
	tenantID   string
	propertyID string
}

func main() {
	dir := flag.String("dir", "", "directory of documents to ingest")
	tenant := flag.String("tenant", "", "tenant owning the documents (default from env)")
	property := flag.String("property", "", "optional property the documents belong to")
	watch := flag.Bool("watch", false, "keep polling the directory for new files")
	interval := flag.Duration("interval", 5*time.Second, "poll interval in watch mode")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.NewJSONLogger("finpipe-ingest", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tenantID := *tenant
	if tenantID == "" {
		tenantID = cfg.DefaultTenantID
	}

	store, err := localfs.New(cfg.StoragePath)
	if err != nil {
		log.Fatalf("init attachment storage: %v", err)
	}
	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		log.Fatalf("init message queue: %v", err)
	}
	defer queue.Close()

	ing := &ingestor{
		store:      store,
		queue:      queue,
		logger:     logger,
		tenantID:   tenantID,
		propertyID: *property,
	}

	var ingested, failed int
	if *watch {
		logger.Info("watching_directory", "dir", *dir, "interval", interval.String())
		ingested, failed = ing.runWatch(ctx, *dir, *interval)
	} else {
		ingested, failed, err = ing.runBatch(ctx, *dir)
		if err != nil {
			log.Fatalf("walk %s: %v", *dir, err)
		}
	}

	logger.Info("ingest_finished", "ingested", ingested, "failed", failed)
	if failed > 0 && !*watch {
		os.Exit(1)
	}
}

// runBatch ingests every file under dir once, without archiving.
func (ing *ingestor) runBatch(ctx context.Context, dir string) (ingested, failed int, err error) {
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == processedDirName {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := ing.ingestFile(ctx, path); err != nil {
			failed++
			ing.logger.Error("ingest_failed", "path", path, "error", err)
			return nil
		}
		ingested++
		return nil
	})
	return ingested, failed, err
}

// runWatch polls dir until the context is cancelled. Files ingested
// successfully move into the processed/ subdirectory; files that failed
// stay in place but are not retried within the same run.
func (ing *ingestor) runWatch(ctx context.Context, dir string, interval time.Duration) (ingested, failed int) {
	seen := make(map[string]bool)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, f := ing.sweep(ctx, dir, seen)
		ingested += n
		failed += f

		select {
		case <-ctx.Done():
			return ingested, failed
		case <-ticker.C:
		}
	}
}

// sweep ingests the files in dir that no earlier sweep has handled.
func (ing *ingestor) sweep(ctx context.Context, dir string, seen map[string]bool) (ingested, failed int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		ing.logger.Error("watch_scan_failed", "dir", dir, "error", err)
		return 0, 0
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if seen[path] {
			continue
		}
		if ctx.Err() != nil {
			return ingested, failed
		}

		ing.logger.Info("new_file_detected", "file", entry.Name())
		seen[path] = true
		if err := ing.ingestFile(ctx, path); err != nil {
			failed++
			ing.logger.Error("ingest_failed", "path", path, "error", err)
			continue
		}
		ingested++
		if err := archiveProcessed(dir, path); err != nil {
			ing.logger.Warn("archive_failed", "path", path, "error", err)
		}
	}
	return ingested, failed
}

// archiveProcessed moves an ingested file into dir's processed/
// subdirectory under a timestamped name so later sweeps skip it even
// across restarts.
func archiveProcessed(dir, path string) error {
	archiveDir := filepath.Join(dir, processedDirName)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	name := fmt.Sprintf("%d_%s", time.Now().Unix(), filepath.Base(path))
	return os.Rename(path, filepath.Join(archiveDir, name))
}

func (ing *ingestor) ingestFile(ctx context.Context, path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	att := &domain.Attachment{
		ID:         uuid.NewString(),
		TenantID:   ing.tenantID,
		PropertyID: ing.propertyID,
		Filename:   filepath.Base(path),
		MimeType:   mimeType,
		Bytes:      payload,
	}
	if err := ing.store.Save(ctx, att); err != nil {
		return fmt.Errorf("save attachment: %w", err)
	}

	return ing.queue.PublishAttachmentReceived(ctx, ports.AttachmentEvent{
		AttachmentID: att.ID,
		TenantID:     ing.tenantID,
		PropertyID:   ing.propertyID,
	})
}
