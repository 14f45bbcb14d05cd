package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/image/draw"
)

const (
	DefaultWidth = 32
	jpegQuality  = 50
	// Max source image size accepted from a URL
	maxSourceBytes = 16 << 20
	// Decoders allocate the full pixel buffer up front
	maxSourcePixels = 25_000_000
)

var (
	ErrImageTooLarge  = errors.New("thumbnail: image dimensions too large")
	ErrHostNotAllowed = errors.New("thumbnail: host not allowed")
	ErrBlockedAddress = errors.New("thumbnail: address not allowed")
)

type Kind string

const KindImage Kind = "image"

// Source references the image a thumbnail is generated from: inline bytes
// or a URL fetched on demand.
type Source struct {
	Data []byte `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

func (s *Source) IsZero() bool { return s == nil || (len(s.Data) == 0 && s.URL == "") }

type Thumbnail struct {
	JPEG   []byte
	Width  int
	Height int
}

// Generator produces a small JPEG preview of a source image.
type Generator interface {
	Generate(ctx context.Context, src Source, kind Kind) (*Thumbnail, error)
}

// ImageGenerator decodes JPEG, PNG or GIF sources and scales them down to a
// fixed width, keeping the aspect ratio.
//
// URL sources on loopback, private or link-local addresses are refused unless
// WithPrivateNetworks is set. The check runs on the dialed address, so it
// also covers redirects and names resolving to internal hosts.
type ImageGenerator struct {
	width        int
	allowedHosts []string
	allowPrivate bool
	http         *http.Client
}

type GeneratorOption func(*ImageGenerator)

// WithAllowedHosts restricts URL sources to the given hosts and their
// subdomains. No hosts means any public host.
func WithAllowedHosts(hosts ...string) GeneratorOption {
	return func(g *ImageGenerator) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				g.allowedHosts = append(g.allowedHosts, h)
			}
		}
	}
}

func WithPrivateNetworks(allow bool) GeneratorOption {
	return func(g *ImageGenerator) { g.allowPrivate = allow }
}

func NewImageGenerator(width int, opts ...GeneratorOption) *ImageGenerator {
	if width <= 0 {
		width = DefaultWidth
	}
	g := &ImageGenerator{width: width}
	for _, opt := range opts {
		opt(g)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	if !g.allowPrivate {
		dialer.Control = denyPrivate
	}
	transport.DialContext = dialer.DialContext
	g.http = &http.Client{
		Timeout:   15 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("thumbnail: too many redirects")
			}
			return g.checkHost(req.URL)
		},
	}
	return g
}

func denyPrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func (g *ImageGenerator) checkHost(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("thumbnail: unsupported scheme %q", u.Scheme)
	}
	if len(g.allowedHosts) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range g.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
}

func (g *ImageGenerator) Generate(ctx context.Context, src Source, kind Kind) (*Thumbnail, error) {
	if kind != KindImage {
		return nil, fmt.Errorf("thumbnail: unsupported kind %q", kind)
	}
	if src.IsZero() {
		return nil, fmt.Errorf("thumbnail: empty source")
	}

	data := src.Data
	if len(data) == 0 {
		var err error
		data, err = g.fetch(ctx, src.URL)
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("thumbnail: decoding image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("thumbnail: empty image")
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("thumbnail: decoding image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("thumbnail: empty image")
	}
	w := g.width
	if b.Dx() < w {
		w = b.Dx()
	}
	h := b.Dy() * w / b.Dx()
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("thumbnail: encoding jpeg: %w", err)
	}
	return &Thumbnail{JPEG: buf.Bytes(), Width: w, Height: h}, nil
}

func (g *ImageGenerator) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: building request: %w", err)
	}
	if err := g.checkHost(req.URL); err != nil {
		return nil, err
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail: fetching %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("thumbnail: reading %s: %w", rawURL, err)
	}
	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("thumbnail: source %s exceeds %d bytes", rawURL, maxSourceBytes)
	}
	return data, nil
}

var _ Generator = (*ImageGenerator)(nil)
