package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"provsync/config"
	"provsync/config/storage"
)

const (
	connectionTimeout = 5 * time.Second
	defaultDebounce   = 100 * time.Millisecond
)

// Options configures a Daemon
type Options struct {
	SocketPath string
	PIDPath    string
	Debounce   time.Duration
	// WatchPaths are store files whose changes trigger a reload
	WatchPaths []string
}

// Daemon keeps its own provider cache, serves it over a Unix socket and
// reloads it whenever one of the store files changes on disk
type Daemon struct {
	manager *config.Manager
	opts    Options
	version atomic.Int64

	watcher  *fsnotify.Watcher
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	debouncer  *time.Timer
	debounceMu sync.Mutex
	stopOnce   sync.Once
}

// New creates a daemon serving manager's config
func New(manager *config.Manager, opts Options) *Daemon {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.PIDPath == "" && opts.SocketPath != "" {
		opts.PIDPath = strings.TrimSuffix(opts.SocketPath, filepath.Ext(opts.SocketPath)) + ".pid"
	}
	return &Daemon{manager: manager, opts: opts}
}

// WatchPaths returns the files behind the file-based backends
func WatchPaths(backends ...storage.Backend) []string {
	var paths []string
	for _, b := range backends {
		if fb, ok := b.(interface{ Path() string }); ok {
			paths = append(paths, filepath.Clean(fb.Path()))
		}
	}
	return paths
}

// Start loads the config and starts the watcher and the socket server.
// It returns once everything is listening.
func (d *Daemon) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.cleanupSocket(); err != nil {
		return fmt.Errorf("failed to cleanup socket: %w", err)
	}
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	d.reload()

	if err := d.startWatcher(); err != nil {
		d.Stop()
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	if err := d.startSocketServer(); err != nil {
		d.Stop()
		return fmt.Errorf("failed to start socket server: %w", err)
	}
	return nil
}

// Run starts the daemon and blocks until ctx is done or SIGINT/SIGTERM is
// received. SIGHUP forces a reload.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				log.Info("received SIGHUP, reloading providers")
				d.reload()
				continue
			}
			log.Infof("received %v, shutting down", sig)
			return nil
		case <-d.ctx.Done():
			return nil
		}
	}
}

// Stop shuts the daemon down and removes its socket and PID file
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		log.Info("stopping daemon")
		if d.cancel != nil {
			d.cancel()
		}
		if d.listener != nil {
			d.listener.Close()
		}
		if d.watcher != nil {
			d.watcher.Close()
		}
		d.debounceMu.Lock()
		if d.debouncer != nil {
			d.debouncer.Stop()
		}
		d.debounceMu.Unlock()

		d.wg.Wait()
		d.manager.Wait()
		d.cleanup()
		log.Info("daemon stopped")
	})
}

// Version returns the number of reloads performed so far
func (d *Daemon) Version() int64 {
	return d.version.Load()
}

func (d *Daemon) reload() {
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := d.manager.Load(ctx)
	version := d.version.Add(1)
	log.WithFields(log.Fields{
		"default":   cfg.DefaultProviderID,
		"providers": cfg.Len(),
		"version":   version,
	}).Info("providers loaded")
}

func (d *Daemon) cleanupSocket() error {
	if _, err := os.Stat(d.opts.SocketPath); err == nil {
		if err := os.Remove(d.opts.SocketPath); err != nil {
			return err
		}
	}
	return os.MkdirAll(filepath.Dir(d.opts.SocketPath), 0755)
}

func (d *Daemon) writePIDFile() error {
	if err := os.MkdirAll(filepath.Dir(d.opts.PIDPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(d.opts.PIDPath, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (d *Daemon) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	d.watcher = watcher

	watched := make(map[string]bool, len(d.opts.WatchPaths))
	dirs := make(map[string]bool)
	for _, p := range d.opts.WatchPaths {
		watched[filepath.Clean(p)] = true
		dirs[filepath.Dir(p)] = true
	}

	// Stores are replaced by rename, so their directories are watched.
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		if err := watcher.Add(dir); err != nil {
			return err
		}
		log.Infof("watching store directory: %s", dir)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !watched[filepath.Clean(event.Name)] {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					d.debouncedReload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("watcher error")
			case <-d.ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (d *Daemon) debouncedReload() {
	d.debounceMu.Lock()
	defer d.debounceMu.Unlock()

	if d.debouncer != nil {
		d.debouncer.Stop()
	}
	d.debouncer = time.AfterFunc(d.opts.Debounce, func() {
		if d.ctx.Err() != nil {
			return
		}
		d.reload()
	})
}

func (d *Daemon) startSocketServer() error {
	listener, err := net.Listen("unix", d.opts.SocketPath)
	if err != nil {
		return err
	}
	d.listener = listener

	if err := os.Chmod(d.opts.SocketPath, 0600); err != nil {
		return err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				if d.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}
				log.WithError(err).Warn("accept error")
				continue
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.handleConnection(conn)
			}()
		}
	}()

	log.Infof("socket server listening on: %s", d.opts.SocketPath)
	return nil
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connectionTimeout))

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		log.WithError(err).Warn("socket read error")
		return
	}

	response := d.processCommand(d.ctx, strings.TrimSpace(string(buf[:n])))
	if _, err := conn.Write([]byte(response)); err != nil {
		log.WithError(err).Warn("socket write error")
	}
}

func (d *Daemon) processCommand(ctx context.Context, command string) string {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "ERROR: empty command"
	}

	arg := func() (string, bool) {
		if len(parts) != 2 {
			return "", false
		}
		return parts[1], true
	}

	switch strings.ToUpper(parts[0]) {
	case "PING":
		return "PONG"
	case "GET":
		return d.handleGet(ctx)
	case "VERSION":
		return strconv.FormatInt(d.Version(), 10)
	case "RELOAD":
		d.reload()
		return "OK"
	case "DEFAULT":
		id, ok := arg()
		if !ok {
			return "ERROR: usage: DEFAULT <id>"
		}
		return result(d.manager.SetDefaultProvider(ctx, id))
	case "DELETE":
		id, ok := arg()
		if !ok {
			return "ERROR: usage: DELETE <id>"
		}
		return result(d.manager.DeleteProvider(ctx, id))
	default:
		return fmt.Sprintf("ERROR: unknown command: %s", parts[0])
	}
}

func (d *Daemon) handleGet(ctx context.Context) string {
	data, err := json.Marshal(d.manager.Config(ctx))
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return string(data)
}

func result(err error) string {
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return "OK"
}

func (d *Daemon) cleanup() {
	if _, err := os.Stat(d.opts.SocketPath); err == nil {
		os.Remove(d.opts.SocketPath)
	}
	if _, err := os.Stat(d.opts.PIDPath); err == nil {
		os.Remove(d.opts.PIDPath)
	}
}

// Query sends one command to a running daemon and returns its response
func Query(socketPath, command string) (string, error) {
	conn, err := net.DialTimeout("unix", socketPath, connectionTimeout)
	if err != nil {
		return "", fmt.Errorf("daemon not reachable at %s: %w", socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connectionTimeout))

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}

	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	response := sb.String()
	if strings.HasPrefix(response, "ERROR: ") {
		return "", errors.New(strings.TrimPrefix(response, "ERROR: "))
	}
	return response, nil
}

// IsRunning reports whether the process recorded in pidPath is alive
func IsRunning(pidPath string) bool {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
