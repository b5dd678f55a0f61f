// Package capture acquires plant photos from remote URLs, browser data URLs
// and network cameras.
package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/agrisense/internal/imageprocessor"
)

var (
	// ErrCameraUnreachable is returned when no frame could be read from a
	// network camera.
	ErrCameraUnreachable = errors.New("network camera unreachable")
	// ErrInvalidSource is returned for malformed URLs or camera addresses.
	ErrInvalidSource = errors.New("invalid image source")
	// ErrTooLarge is returned when a fetched image exceeds the size limit.
	ErrTooLarge = errors.New("image too large")
)

// Camera addresses a network camera such as a phone running DroidCam.
type Camera struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

func (c Camera) baseURL() string {
	return "http://" + net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// UnreachableMessage is the text shown to users when the camera cannot be
// reached.
func (c Camera) UnreachableMessage() string {
	return fmt.Sprintf("Could not reach the network camera at %s. Check the IP address and port, or upload a photo instead.",
		net.JoinHostPort(c.IP, strconv.Itoa(c.Port)))
}

// Capturer fetches images over HTTP.
type Capturer struct {
	client   *http.Client
	maxBytes int64
}

// New returns a Capturer. client carries the per-request timeout.
func New(client *http.Client, maxBytes int64) *Capturer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Capturer{client: client, maxBytes: maxBytes}
}

// FromDataURL decodes a base64 data: URL.
func (c *Capturer) FromDataURL(dataURL string) ([]byte, error) {
	data, _, err := imageprocessor.ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// FromURL downloads an image from an http(s) URL.
func (c *Capturer) FromURL(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, rawURL)
	}

	resp, err := c.get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	return c.readLimited(resp.Body)
}

// FromCamera grabs a still frame from cam. It tries the camera's snapshot
// endpoint first and then the first JPEG of its MJPEG feed.
func (c *Capturer) FromCamera(ctx context.Context, cam Camera) ([]byte, error) {
	if net.ParseIP(cam.IP) == nil && !validHostname(cam.IP) {
		return nil, fmt.Errorf("%w: camera ip %q", ErrInvalidSource, cam.IP)
	}
	if cam.Port <= 0 || cam.Port > 65535 {
		return nil, fmt.Errorf("%w: camera port %d", ErrInvalidSource, cam.Port)
	}

	shot, shotErr := c.snapshot(ctx, cam.baseURL()+"/shot.jpg")
	if shotErr == nil {
		return shot, nil
	}
	if errors.Is(shotErr, ErrTooLarge) {
		return nil, shotErr
	}

	frame, feedErr := c.firstFrame(ctx, cam.baseURL()+"/mjpegfeed")
	if feedErr == nil {
		return frame, nil
	}
	if errors.Is(feedErr, ErrTooLarge) {
		return nil, feedErr
	}
	return nil, fmt.Errorf("%w: %v; %v", ErrCameraUnreachable, shotErr, feedErr)
}

func (c *Capturer) snapshot(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot status %d", resp.StatusCode)
	}
	return c.readLimited(resp.Body)
}

func (c *Capturer) firstFrame(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mjpeg feed status %d", resp.StatusCode)
	}

	limit := c.maxBytes
	if limit <= 0 {
		limit = 16 << 20
	}
	body := bufio.NewReader(io.LimitReader(resp.Body, limit*2))

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		if frame, err := c.firstPart(body, params["boundary"]); err == nil {
			return frame, nil
		}
	}
	return scanJPEG(body, limit)
}

func (c *Capturer) firstPart(r io.Reader, boundary string) ([]byte, error) {
	mr := multipart.NewReader(r, strings.TrimPrefix(boundary, "--"))
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		ct := part.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, "image/") {
			continue
		}
		frame, err := c.readLimited(part)
		if err != nil {
			return nil, err
		}
		if len(frame) > 0 {
			return frame, nil
		}
	}
}

var (
	jpegStart = []byte{0xFF, 0xD8}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// scanJPEG extracts the first complete JPEG from a raw byte stream.
func scanJPEG(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 32<<10)
	start := -1
	for int64(buf.Len()) < limit*2 {
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		data := buf.Bytes()
		if start < 0 {
			start = bytes.Index(data, jpegStart)
		}
		if start >= 0 {
			if end := bytes.Index(data[start+2:], jpegEnd); end >= 0 {
				frame := data[start : start+2+end+2]
				if int64(len(frame)) > limit {
					return nil, ErrTooLarge
				}
				return append([]byte(nil), frame...), nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no jpeg frame in stream")
			}
			return nil, err
		}
	}
	return nil, ErrTooLarge
}

func (c *Capturer) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

func (c *Capturer) readLimited(r io.Reader) ([]byte, error) {
	if c.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func validHostname(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}
