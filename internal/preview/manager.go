package preview

import (
	"crypto/md5"
	"encoding/hex"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/notework/collab/internal/domain"
)

// UpdateFunc receives freshly rendered pages for a document.
type UpdateFunc func(path string, updates []domain.PageUpdate)

// Manager runs one compiler watch process per open document. The process
// writes page-{n}.svg files into a private cache directory; an fsnotify
// watcher on that directory turns each write into a preview update. Watches
// are reference counted so several subscribers of the same file share one
// compiler process.
type Manager struct {
	mu        sync.Mutex
	root      string
	cacheRoot string
	bin       string
	onUpdate  UpdateFunc
	watchers  map[string]*watcher
}

type watcher struct {
	refs     int
	cacheDir string
	cmd      *exec.Cmd
	fsw      *fsnotify.Watcher

	mu    sync.Mutex
	pages map[int]string
}

// NewManager creates a manager rendering documents under root into
// cacheRoot. The cache is wiped on startup; stale pages from a previous run
// are worthless. An empty bin disables the preview lane entirely.
func NewManager(root, cacheRoot, bin string, onUpdate UpdateFunc) *Manager {
	if cacheRoot != "" {
		os.RemoveAll(cacheRoot)
		if err := os.MkdirAll(cacheRoot, 0o755); err != nil {
			log.Printf("preview: cache dir: %v", err)
		}
	}
	return &Manager{
		root:      root,
		cacheRoot: cacheRoot,
		bin:       bin,
		onUpdate:  onUpdate,
		watchers:  make(map[string]*watcher),
	}
}

// Watch starts (or joins) the render watch for path.
func (m *Manager) Watch(path string) error {
	if m.bin == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.watchers[path]; ok {
		w.refs++
		return nil
	}

	sum := md5.Sum([]byte(path))
	cacheDir := filepath.Join(m.cacheRoot, hex.EncodeToString(sum[:])[:8])
	os.RemoveAll(cacheDir)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(cacheDir); err != nil {
		fsw.Close()
		return err
	}

	cmd := exec.Command(m.bin, "watch",
		filepath.Join(m.root, filepath.FromSlash(path)),
		filepath.Join(cacheDir, "page-{n}.svg"),
		"--root", m.root)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		fsw.Close()
		return err
	}

	w := &watcher{
		refs:     1,
		cacheDir: cacheDir,
		cmd:      cmd,
		fsw:      fsw,
		pages:    make(map[int]string),
	}
	m.watchers[path] = w

	go m.consume(path, w)
	return nil
}

// consume reads filesystem events until the fsnotify watcher is closed.
func (m *Manager) consume(path string, w *watcher) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			page, ok := ParsePageFile(filepath.Base(ev.Name))
			if !ok {
				continue
			}
			data, err := os.ReadFile(ev.Name)
			if err != nil || len(data) == 0 {
				continue
			}
			svg := string(data)

			w.mu.Lock()
			w.pages[page] = svg
			w.mu.Unlock()

			if m.onUpdate != nil {
				m.onUpdate(path, []domain.PageUpdate{{Page: page, SVG: svg}})
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("preview: watch %s: %v", path, err)
		}
	}
}

// Unwatch drops one reference on the watch for path, tearing it down when
// the last subscriber leaves.
func (m *Manager) Unwatch(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.watchers[path]
	if !ok {
		return
	}
	w.refs--
	if w.refs > 0 {
		return
	}
	delete(m.watchers, path)
	m.teardown(w)
}

// Snapshot returns the cached pages for path in page order, for replay to a
// newly joining subscriber.
func (m *Manager) Snapshot(path string) []domain.PageUpdate {
	m.mu.Lock()
	w, ok := m.watchers[path]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	pages := make([]int, 0, len(w.pages))
	for p := range w.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	updates := make([]domain.PageUpdate, 0, len(pages))
	for _, p := range pages {
		updates = append(updates, domain.PageUpdate{Page: p, SVG: w.pages[p]})
	}
	return updates
}

// Stop tears down every watch.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for path, w := range m.watchers {
		delete(m.watchers, path)
		m.teardown(w)
	}
}

func (m *Manager) teardown(w *watcher) {
	w.fsw.Close()
	if w.cmd.Process != nil {
		w.cmd.Process.Kill()
		go w.cmd.Wait()
	}
	os.RemoveAll(w.cacheDir)
}

// ParsePageFile extracts the page number from a rendered file name of the
// form page-3.svg.
func ParsePageFile(name string) (int, bool) {
	if !strings.HasPrefix(name, "page-") || !strings.HasSuffix(name, ".svg") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "page-"), ".svg"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
