package remotefs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/streamvault/mediagate/internal/catalog"
)

const dialTimeout = 10 * time.Second

// ServerLookup resolves an origin server's address and credential.
type ServerLookup interface {
	GetOriginServer(ctx context.Context, serverID string) (catalog.OriginServer, error)
}

// SFTPTransport implements Transport over SSH/SFTP with one lazily-dialed,
// cached connection per origin server. A failed operation drops the cached
// connection so the next call redials.
type SFTPTransport struct {
	lookup ServerLookup
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*conn
}

type conn struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func NewSFTPTransport(log *slog.Logger, lookup ServerLookup) *SFTPTransport {
	if log == nil {
		log = slog.Default()
	}
	return &SFTPTransport{
		lookup:  lookup,
		logger:  log.With(slog.String("service", "remotefs")),
		clients: make(map[string]*conn),
	}
}

// EnsureDir creates path and any missing parents on the server.
func (t *SFTPTransport) EnsureDir(ctx context.Context, serverID, path string) error {
	client, err := t.client(ctx, serverID)
	if err != nil {
		return err
	}
	if err := client.sftp.MkdirAll(path); err != nil {
		t.drop(serverID)
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// PutFile streams the local file to remotePath.
func (t *SFTPTransport) PutFile(ctx context.Context, serverID, localPath, remotePath string) error {
	client, err := t.client(ctx, serverID)
	if err != nil {
		return err
	}
	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer local.Close()

	remote, err := client.sftp.Create(remotePath)
	if err != nil {
		t.drop(serverID)
		return fmt.Errorf("create remote file: %w", err)
	}
	if _, err := io.Copy(remote, local); err != nil {
		remote.Close()
		t.drop(serverID)
		return fmt.Errorf("transfer %s: %w", remotePath, err)
	}
	if err := remote.Close(); err != nil {
		t.drop(serverID)
		return fmt.Errorf("close remote file: %w", err)
	}
	return nil
}

// DeleteFile removes remotePath. A missing file is reported as an error; the
// caller decides whether that is fatal.
func (t *SFTPTransport) DeleteFile(ctx context.Context, serverID, remotePath string) error {
	client, err := t.client(ctx, serverID)
	if err != nil {
		return err
	}
	if err := client.sftp.Remove(remotePath); err != nil {
		return fmt.Errorf("remove %s: %w", remotePath, err)
	}
	return nil
}

// Close tears down all cached connections.
func (t *SFTPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for id, c := range t.clients {
		if err := c.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(t.clients, id)
	}
	return firstErr
}

func (t *SFTPTransport) client(ctx context.Context, serverID string) (*conn, error) {
	t.mu.Lock()
	if c, ok := t.clients[serverID]; ok {
		t.mu.Unlock()
		return c, nil
	}
	t.mu.Unlock()

	server, err := t.lookup.GetOriginServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("resolve origin server: %w", err)
	}

	port := server.SSHPort
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(server.Address, fmt.Sprint(port))

	sshClient, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            server.AdminUser,
		Auth:            []ssh.AuthMethod{ssh.Password(server.AdminPassword)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("sftp session: %w", err)
	}

	c := &conn{ssh: sshClient, sftp: sftpClient}
	t.mu.Lock()
	// another goroutine may have raced the dial; keep the first connection
	if existing, ok := t.clients[serverID]; ok {
		t.mu.Unlock()
		c.close()
		return existing, nil
	}
	t.clients[serverID] = c
	t.mu.Unlock()

	t.logger.Info("connected to origin server",
		slog.String("server_id", serverID),
		slog.String("addr", addr),
	)
	return c, nil
}

func (t *SFTPTransport) drop(serverID string) {
	t.mu.Lock()
	c, ok := t.clients[serverID]
	if ok {
		delete(t.clients, serverID)
	}
	t.mu.Unlock()
	if ok {
		c.close()
	}
}

func (c *conn) close() error {
	sftpErr := c.sftp.Close()
	sshErr := c.ssh.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return sshErr
}
