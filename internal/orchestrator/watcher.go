package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchDropFolder watches dir for newly created files and feeds each one
// through Run as if it had arrived via the chunked upload protocol,
// registering it as a dataset first. It blocks until ctx is cancelled or
// the watcher fails to start.
//
// Only files present at the moment of a create event are picked up; a
// write still in progress when the event fires is handled the same way a
// slow multipart upload is, since Run's own parser reads the file as it
// finds it and a failed parse simply fails that dataset.
func (o *Orchestrator) WatchDropFolder(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			o.handleDroppedFile(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.logger.Warn("drop_folder_watch_error", "dir", dir, "error", err)
		}
	}
}

func (o *Orchestrator) handleDroppedFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	filename := filepath.Base(path)
	fileID, err := o.datasetStore.CreateDataset(ctx, filename, "")
	if err != nil {
		o.logger.Warn("drop_folder_register_failed", "path", path, "error", err)
		return
	}
	if err := o.datasetStore.SetByteSize(ctx, fileID, info.Size()); err != nil {
		o.logger.Warn("drop_folder_set_size_failed", "file_id", fileID, "error", err)
	}

	go func() {
		if err := o.Run(context.Background(), fileID, path, filename); err != nil {
			o.logger.Error("drop_folder_run_failed", "file_id", fileID, "path", path, "error", err)
		}
	}()
}
