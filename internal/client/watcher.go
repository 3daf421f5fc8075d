package client

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/mdouchement/starving/pkg/deeplink"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultSettleDelay is the quiet period awaited before a dropped file is handled.
const DefaultSettleDelay = 250 * time.Millisecond

// An Inbox watches a directory where shared list files are dropped.
type Inbox struct {
	dir     string
	settle  time.Duration
	logger  logrus.FieldLogger
	handler func(filename string)

	mu      sync.Mutex
	pending map[string]func(func())
	wg      sync.WaitGroup
}

// NewInbox returns an Inbox calling handler once per dropped shared list file.
func NewInbox(dir string, settle time.Duration, logger logrus.FieldLogger, handler func(filename string)) *Inbox {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Inbox{
		dir:     dir,
		settle:  settle,
		logger:  logger,
		handler: handler,
		pending: map[string]func(func()){},
	}
}

// Run handles the files already present then watches the directory until ctx is done.
func (i *Inbox) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "could not create watcher")
	}
	defer watcher.Close()

	if err = watcher.Add(i.dir); err != nil {
		return errors.Wrapf(err, "could not watch %s", i.dir)
	}

	entries, err := os.ReadDir(i.dir)
	if err != nil {
		return errors.Wrapf(err, "could not read %s", i.dir)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			i.schedule(filepath.Join(i.dir, entry.Name()))
		}
	}

	defer i.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				i.schedule(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			i.logger.WithError(err).Warn("inbox watcher error")
		}
	}
}

// schedule debounces the events of a file so a file being written is handled once.
func (i *Inbox) schedule(filename string) {
	if !deeplink.Supported(filename) {
		return
	}

	i.mu.Lock()
	debounced, ok := i.pending[filename]
	if !ok {
		debounced = debounce.New(i.settle)
		i.pending[filename] = debounced
		i.wg.Add(1)
	}
	i.mu.Unlock()

	debounced(func() {
		i.mu.Lock()
		delete(i.pending, filename)
		i.mu.Unlock()
		defer i.wg.Done()

		if _, err := os.Stat(filename); err != nil {
			return
		}
		i.logger.WithField("file", filename).Info("handling dropped file")
		i.handler(filename)
	})
}
