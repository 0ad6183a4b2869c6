package handlers

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/internal/netutil"
)

// AssetHandler 提供缓存的 3D 模型文件，并代理允许范围内的厂商资源。
type AssetHandler struct {
	dir    string
	client *http.Client
	logger *zap.Logger

	// allowedHostSuffix bounds the proxy. Only hostnames equal to or
	// ending in "." + suffix are reachable; everything else is rejected
	// before any network activity.
	allowedHostSuffix string
}

func NewAssetHandler(dir, allowedHostSuffix string, logger *zap.Logger) *AssetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetHandler{
		dir:               dir,
		client:            netutil.Client(netutil.BinaryTimeout),
		logger:            logger,
		allowedHostSuffix: allowedHostSuffix,
	}
}

// safePathSegment 拒绝一切可能逃出缓存目录的片段。
// 先于任何文件系统访问执行。
func safePathSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.Contains(s, "..") {
		return false
	}
	if strings.ContainsAny(s, "/\\") {
		return false
	}
	return true
}

func contentTypeByExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".glb":
		return "model/gltf-binary"
	case ".fbx":
		return "application/octet-stream"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// HandleServeModel 处理 GET /api/models/{artifactId}/{filename}。
func (h *AssetHandler) HandleServeModel(w http.ResponseWriter, r *http.Request) {
	artifactID := r.PathValue("artifactId")
	filename := r.PathValue("filename")

	if !safePathSegment(artifactID) || !safePathSegment(filename) {
		WriteErrorMessage(w, http.StatusBadRequest, "invalid path")
		return
	}

	localPath := filepath.Join(h.dir, artifactID, filename)
	data, err := os.ReadFile(localPath)
	if err != nil {
		WriteErrorMessage(w, http.StatusNotFound, "model file not found")
		return
	}

	w.Header().Set("Content-Type", contentTypeByExtension(filename))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}

// hostAllowed 只做主机名后缀匹配，带点边界，防止
// "evil-meshy.ai.attacker.com" 这类混淆。
func (h *AssetHandler) hostAllowed(hostname string) bool {
	if h.allowedHostSuffix == "" {
		return false
	}
	return hostname == h.allowedHostSuffix || strings.HasSuffix(hostname, "."+h.allowedHostSuffix)
}

// HandleProxy 处理 GET /api/proxy?url=。浏览器拿不到厂商资源的 CORS
// 许可，由服务端代取；主机名不在允许范围一律 403，且不发起连接。
func (h *AssetHandler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		WriteErrorMessage(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		WriteErrorMessage(w, http.StatusBadRequest, "invalid url")
		return
	}
	if !h.hostAllowed(parsed.Hostname()) {
		h.logger.Warn("proxy target rejected", zap.String("host", parsed.Hostname()))
		WriteErrorMessage(w, http.StatusForbidden, "proxy target not allowed")
		return
	}

	data, err := netutil.DownloadBinary(r.Context(), h.client, rawURL)
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", contentTypeByExtension(parsed.Path))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
