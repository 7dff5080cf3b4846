// Package remotefs pushes asset bytes to origin servers over an authenticated
// remote-storage channel.
package remotefs

import "context"

// Transport is the abstract remote storage capability of an origin server.
// Implementations address servers by their catalog identifier.
type Transport interface {
	// EnsureDir creates the remote directory (and parents) if missing.
	// Idempotent: safe to call when the directory already exists.
	EnsureDir(ctx context.Context, serverID, path string) error
	// PutFile transfers a local file's bytes to the remote path.
	PutFile(ctx context.Context, serverID, localPath, remotePath string) error
	// DeleteFile removes the remote file.
	DeleteFile(ctx context.Context, serverID, remotePath string) error
}
