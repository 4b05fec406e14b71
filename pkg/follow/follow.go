// Package follow provides a tail -f style reader over a growing file.
// Read returns data as it is appended and blocks at end of file until the
// watcher reports new writes, so the reader can feed a stream parser that
// expects a long-lived connection.
package follow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultPollInterval = 500 * time.Millisecond

type options struct {
	fromEnd      bool
	pollInterval time.Duration
}

// Option configures a Reader.
type Option func(*options)

// FromEnd skips content already in the file and only follows new writes.
func FromEnd() Option {
	return func(o *options) {
		o.fromEnd = true
	}
}

// WithPollInterval adjusts how often the file size is checked when the
// watcher reports nothing. The poll also catches truncation.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// Reader follows a file as it grows. It is not safe for concurrent reads.
type Reader struct {
	ctx     context.Context
	path    string
	file    *os.File
	offset  int64
	watcher *fsnotify.Watcher
	poll    *time.Ticker

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open opens the file at path for following. The context bounds all reads:
// once it is canceled, Read returns its error.
func Open(ctx context.Context, path string, opts ...Option) (*Reader, error) {
	o := options{pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	var offset int64
	if o.fromEnd {
		stat, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		offset, err = file.Seek(stat.Size(), io.SeekStart)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("seek %s: %w", path, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory rather than the file itself so the watch survives
	// editors and log writers that replace the file on save.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		file.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	return &Reader{
		ctx:     ctx,
		path:    filepath.Clean(path),
		file:    file,
		offset:  offset,
		watcher: watcher,
		poll:    time.NewTicker(o.pollInterval),
		done:    make(chan struct{}),
	}, nil
}

// Read returns available bytes, blocking at end of file until more are
// appended. It never returns io.EOF; the stream ends only through Close or
// context cancellation.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		select {
		case <-r.done:
			return 0, os.ErrClosed
		default:
		}

		n, err := r.file.Read(p)
		if n > 0 {
			r.offset += int64(n)
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}

		if err := r.wait(); err != nil {
			return 0, err
		}
	}
}

// wait blocks until the file plausibly has new content.
func (r *Reader) wait() error {
	for {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()

		case <-r.done:
			return os.ErrClosed

		case event, ok := <-r.watcher.Events:
			if !ok {
				return os.ErrClosed
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			return nil

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return os.ErrClosed
			}
			return fmt.Errorf("watching %s: %w", r.path, err)

		case <-r.poll.C:
			info, err := os.Stat(r.path)
			if err != nil {
				continue
			}
			if info.Size() < r.offset {
				// Truncated; start over from the top.
				if _, err := r.file.Seek(0, io.SeekStart); err != nil {
					return err
				}
				r.offset = 0
				return nil
			}
			if info.Size() > r.offset {
				return nil
			}
		}
	}
}

// Close releases the watcher and file and unblocks any pending Read.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.poll.Stop()
		r.closeErr = errors.Join(r.watcher.Close(), r.file.Close())
	})
	return r.closeErr
}
