package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"forecast-ingest/edi/internal/common"
)

// Transport defines the remote file capability the orchestrator consumes.
// Every call honours the deadline carried by ctx.
type Transport interface {
	// Connect opens the session and reports where it landed
	Connect(ctx context.Context) (*ConnectionInfo, error)

	// Test performs a connect/disconnect round trip without transferring files
	Test(ctx context.Context) (*ConnectionInfo, error)

	// List returns remote file names in remotePath matching pattern (glob, "" or "*" for all)
	List(ctx context.Context, remotePath, pattern string) ([]string, error)

	// Get copies remote to the local path
	Get(ctx context.Context, remote, local string) error

	// Put copies the local file to remote
	Put(ctx context.Context, local, remote string) error

	// Delete removes a remote file
	Delete(ctx context.Context, remote string) error

	// Close releases the session
	Close() error
}

// ConnectionInfo contains the results of a connection test
type ConnectionInfo struct {
	OK     bool   `json:"ok"`
	Server string `json:"server"`
	User   string `json:"user"`
	Cwd    string `json:"cwd"`
}

// LocalDirTransport serves a directory as the partner's remote side. It is used
// when the partner drop is mounted locally and in tests.
type LocalDirTransport struct {
	root string
}

var _ Transport = (*LocalDirTransport)(nil)

// NewLocalDirTransport creates a transport rooted at root
func NewLocalDirTransport(root string) *LocalDirTransport {
	return &LocalDirTransport{root: root}
}

func (t *LocalDirTransport) resolve(remote string) string {
	return filepath.Join(t.root, filepath.FromSlash(remote))
}

func (t *LocalDirTransport) Connect(ctx context.Context) (*ConnectionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, &common.TransportError{Op: "connect", Err: err}
	}
	info, err := os.Stat(t.root)
	if err != nil {
		return nil, &common.TransportError{Op: "connect", Err: err}
	}
	if !info.IsDir() {
		return nil, &common.TransportError{Op: "connect", Err: fmt.Errorf("%s is not a directory", t.root)}
	}

	user := os.Getenv("USER")
	host, _ := os.Hostname()
	return &ConnectionInfo{OK: true, Server: host, User: user, Cwd: t.root}, nil
}

func (t *LocalDirTransport) Test(ctx context.Context) (*ConnectionInfo, error) {
	info, err := t.Connect(ctx)
	if err != nil {
		return &ConnectionInfo{OK: false, Cwd: t.root}, err
	}
	return info, t.Close()
}

func (t *LocalDirTransport) List(ctx context.Context, remotePath, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &common.TransportError{Op: "list", Err: err}
	}
	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, &common.TransportError{Op: "list", Err: err}
	}

	entries, err := os.ReadDir(t.resolve(remotePath))
	if err != nil {
		return nil, &common.TransportError{Op: "list", Err: err}
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (t *LocalDirTransport) Get(ctx context.Context, remote, local string) error {
	if err := copyFile(ctx, t.resolve(remote), local); err != nil {
		return &common.TransportError{Op: "get", Err: err}
	}
	return nil
}

func (t *LocalDirTransport) Put(ctx context.Context, local, remote string) error {
	if err := copyFile(ctx, local, t.resolve(remote)); err != nil {
		return &common.TransportError{Op: "put", Err: err}
	}
	return nil
}

func (t *LocalDirTransport) Delete(ctx context.Context, remote string) error {
	if err := ctx.Err(); err != nil {
		return &common.TransportError{Op: "delete", Err: err}
	}
	if err := os.Remove(t.resolve(remote)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &common.TransportError{Op: "delete", Err: err}
	}
	return nil
}

func (t *LocalDirTransport) Close() error {
	return nil
}

// copyFile writes through a temp file so a partial copy never appears under dst
func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".part-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}
