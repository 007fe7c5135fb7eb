package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const maxAssetSize = 10 << 20 // 10 MB

var (
	imageTypes = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// assetResult tells the caller how to reference a saved image from the
// page's front matter.
type assetResult struct {
	Path        string `json:"path"`
	FrontMatter string `json:"frontMatter"`
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := s.renderer.Project()
	rel, ok := p.Rel(page)
	if !ok || !p.IsPage(rel) {
		return mcp.NewToolResultError(fmt.Sprintf("not a page: %s", page)), nil
	}

	var data []byte
	var ext string
	if strings.HasPrefix(rawURL, "data:") {
		data, ext, err = decodeDataURI(rawURL)
	} else {
		data, ext, err = download(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := assetName(req.GetString("filename", ""), rawURL, ext)
	if err := checkImage(data, path.Ext(name)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dest := path.Join(path.Dir(rel), name)
	if p.Store.Exists(dest) {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", dest)), nil
	}
	if err := p.Store.Write(dest, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save asset: %v", err)), nil
	}

	out, _ := json.Marshal(assetResult{Path: dest, FrontMatter: "image: " + name})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	ext, ok := imageTypes[strings.Split(mediaType, ";")[0]]
	if !ok {
		return nil, "", fmt.Errorf("unsupported media type in data URI: %s", mediaType)
	}
	return data, ext, nil
}

// download fetches an image over http(s), refusing loopback and cloud
// metadata hosts.
func download(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", u.Scheme)
	}
	if err := checkHost(u.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkHost(req.URL.Hostname())
		},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxAssetSize)
	}
	return data, imageTypes[strings.Split(resp.Header.Get("Content-Type"), ";")[0]], nil
}

func checkHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil //nolint:nilerr // the client reports DNS failures
		}
		ip = ips[0]
	}
	if ip.IsLoopback() || ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

// assetName picks a safe file name: the requested one, else the URL's base
// name, else a random one with the detected extension.
func assetName(requested, rawURL, ext string) string {
	name := requested
	if name == "" && !strings.HasPrefix(rawURL, "data:") {
		if u, err := url.Parse(rawURL); err == nil {
			if base := path.Base(u.Path); strings.Contains(base, ".") {
				name = base
			}
		}
	}
	name = unsafeNameRe.ReplaceAllString(path.Base(name), "_")
	if name == "" || name == "." || name == "/" {
		if ext == "" {
			ext = ".bin"
		}
		name = uuid.NewString() + ext
	}
	return name
}

// checkImage verifies the extension is an image type and the content
// matches it.
func checkImage(data []byte, ext string) error {
	ext = strings.ToLower(ext)
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	known := false
	for _, e := range imageTypes {
		known = known || e == ext
	}
	if !known {
		return fmt.Errorf("unsupported file extension: %q (allowed: png, jpg, gif, webp, svg)", ext)
	}
	if ext == ".svg" {
		head := data[:min(len(data), 1024)]
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}
	detected := http.DetectContentType(data)
	if imageTypes[strings.Split(detected, ";")[0]] != ext {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
	}
	return nil
}
