// Package assets serves static files from a directory through the response
// cache, optionally gzip-compressed.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/cache"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/protocol"
)

// MaxAssetBytes bounds files read into memory.
const MaxAssetBytes = 512 << 10

// gzipMinBytes is the smallest body worth compressing.
const gzipMinBytes = 256

var contentTypes = map[string]string{
	".html":  protocol.ContentTypeHTML,
	".htm":   protocol.ContentTypeHTML,
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".json":  protocol.ContentTypeJSON,
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".txt":   protocol.ContentTypeText,
	".woff2": "font/woff2",
}

var compressible = map[string]bool{
	".html": true, ".htm": true, ".css": true, ".js": true,
	".json": true, ".svg": true, ".txt": true,
}

// ContentType returns the content type for a file name.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Options configure rendering.
type Options struct {
	CORS bool
	Gzip bool
}

// Assets renders files from fsys into cached responses.
type Assets struct {
	fsys  fs.FS
	cache *cache.Cache
	opts  Options
}

// New returns an asset server over fsys using c for rendered responses.
func New(fsys fs.FS, c *cache.Cache, opts Options) *Assets {
	return &Assets{fsys: fsys, cache: c, opts: opts}
}

// Clean validates a requested name and returns it relative to the asset
// root. Names containing ".." segments or backslashes are rejected.
func Clean(name string) (string, bool) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.Contains(name, "\\") {
		return "", false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return "", false
		}
	}
	return name, fs.ValidPath(name)
}

// Serve returns the response for name. Missing or rejected names yield 404.
func (a *Assets) Serve(name string, acceptsGzip bool) *protocol.Response {
	clean, ok := Clean(name)
	if !ok {
		return protocol.Error(404, "File not found")
	}

	useGzip := a.opts.Gzip && acceptsGzip && compressible[strings.ToLower(path.Ext(clean))]
	key := clean
	if useGzip {
		key += "|gzip"
	}

	wire, err := a.cache.Fetch(key, func() ([]byte, error) {
		return a.render(clean, useGzip)
	})
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return protocol.Error(404, "File not found")
	case err != nil:
		logging.Error("Failed to render asset", zap.String("name", clean), zap.Error(err))
		return protocol.Error(500, "Failed to read file")
	}
	return protocol.Prerendered(200, wire)
}

func (a *Assets) render(name string, useGzip bool) ([]byte, error) {
	info, err := fs.Stat(a.fsys, name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}
	if info.Size() > MaxAssetBytes {
		return nil, fmt.Errorf("asset %s is %d bytes, limit %d", name, info.Size(), MaxAssetBytes)
	}

	body, err := fs.ReadFile(a.fsys, name)
	if err != nil {
		return nil, err
	}

	resp := protocol.Build(200, ContentType(name), body)
	resp.SetHeader("Cache-Control", "max-age=3600")
	if useGzip && len(body) >= gzipMinBytes {
		compressed, err := compress(body)
		if err != nil {
			return nil, err
		}
		resp.Body = compressed
		resp.SetHeader("Content-Encoding", "gzip")
		resp.SetHeader("Vary", "Accept-Encoding")
	}
	logging.Debug("Rendered asset",
		zap.String("name", name),
		zap.Int("size", len(body)),
		zap.Int("wire_size", len(resp.Body)),
	)
	return resp.Render(a.opts.CORS), nil
}

func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
