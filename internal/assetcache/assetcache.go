// Package assetcache mirrors generated 3D model files onto local disk.
// Vendor asset URLs expire after a few days; once a generation succeeds
// the files are fetched immediately and served from here forever after.
package assetcache

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/internal/netutil"
	"github.com/BaSui01/artiflow/types"
)

// Cache 把厂商的临时资源落盘到 <dir>/<artifactID>/<filename>，
// 对外暴露稳定的 <publicPrefix>/<artifactID>/<filename> 路径。
type Cache struct {
	dir          string
	publicPrefix string
	client       *http.Client
	logger       *zap.Logger
}

// New creates a cache rooted at dir. publicPrefix is the URL prefix the
// asset handler serves from, e.g. "/api/models".
func New(dir, publicPrefix string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		dir:          dir,
		publicPrefix: publicPrefix,
		client:       netutil.Client(netutil.BinaryTimeout),
		logger:       logger,
	}
}

// Dir returns the cache root, for the handler that serves files out of it.
func (c *Cache) Dir() string { return c.dir }

// Fetch downloads one remote asset into the artifact's cache directory and
// returns its public path. Idempotent: an existing file is trusted and not
// re-downloaded. Concurrent fetches of the same asset are last-write-wins;
// both writers produce identical bytes.
func (c *Cache) Fetch(ctx context.Context, artifactID, filename, remoteURL string) (string, error) {
	publicPath := c.publicPrefix + "/" + artifactID + "/" + filename
	localPath := filepath.Join(c.dir, artifactID, filename)

	if _, err := os.Stat(localPath); err == nil {
		return publicPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	data, err := netutil.DownloadBinary(ctx, c.client, remoteURL)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write cached asset: %w", err)
	}

	c.logger.Info("asset cached",
		zap.String("artifact", artifactID),
		zap.String("file", filename),
		zap.Int("bytes", len(data)),
	)
	return publicPath, nil
}

// FetchModelURLs localizes every URL in a successful generation result.
// A failed download of one file does not lose the others: the remote URL
// is kept as a fallback and the failure logged.
func (c *Cache) FetchModelURLs(ctx context.Context, artifactID string, remote *types.ModelURLs) *types.ModelURLs {
	if remote == nil {
		return nil
	}

	local := &types.ModelURLs{}
	local.GLB = c.fetchOrFallback(ctx, artifactID, "model.glb", remote.GLB)
	local.FBX = c.fetchOrFallback(ctx, artifactID, "model.fbx", remote.FBX)
	local.Thumbnail = c.fetchOrFallback(ctx, artifactID, "thumbnail.png", remote.Thumbnail)
	return local
}

func (c *Cache) fetchOrFallback(ctx context.Context, artifactID, filename, remoteURL string) string {
	if remoteURL == "" {
		return ""
	}
	publicPath, err := c.Fetch(ctx, artifactID, filename, remoteURL)
	if err != nil {
		c.logger.Warn("asset download failed, keeping remote URL",
			zap.String("artifact", artifactID),
			zap.String("file", filename),
			zap.Error(err),
		)
		return remoteURL
	}
	return publicPath
}
