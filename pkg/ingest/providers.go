package ingest

import (
	"context"
	"fmt"
	"image"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registered decoders for dimension sniffing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
)

// NativeBridge is the host-shell file API available when the app runs inside
// a native container. It is the fastest source and the only one that can
// return a platform-computed fingerprint and a pre-decoded video cover frame.
type NativeBridge interface {
	FileInfo(ctx context.Context, path string) (BridgeFileInfo, error)
}

// BridgeFileInfo mirrors what the host shell reports for one file.
type BridgeFileInfo struct {
	LastModified time.Time
	CreationTime time.Time
	Size         int64
	Width        int
	Height       int
	MimeType     string
	Fingerprint  string
	CoverFrame   []byte // representative frame for videos, if the host decoded one
}

// BridgeProvider adapts a NativeBridge into the provider chain.
type BridgeProvider struct {
	Bridge NativeBridge
}

func (p *BridgeProvider) Name() string { return "native-bridge" }

func (p *BridgeProvider) Resolve(ctx context.Context, path string) (Metadata, error) {
	info, err := p.Bridge.FileInfo(ctx, path)
	if err != nil {
		return Metadata{}, err
	}

	capturedAt := info.CreationTime
	if capturedAt.IsZero() {
		capturedAt = info.LastModified
	}
	return Metadata{
		CapturedAt:  capturedAt,
		Width:       info.Width,
		Height:      info.Height,
		MimeType:    info.MimeType,
		Size:        info.Size,
		Fingerprint: info.Fingerprint,
	}, nil
}

// StatProvider reads last-modified time and byte size from the filesystem.
type StatProvider struct{}

func (StatProvider) Name() string { return "stat" }

func (StatProvider) Resolve(ctx context.Context, path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		CapturedAt: info.ModTime(),
		Size:       info.Size(),
		MimeType:   mime.TypeByExtension(filepath.Ext(path)),
	}, nil
}

// DecodeProvider decodes just the image header to read pixel dimensions.
// Video files are skipped; their dimensions come from the bridge or tags.
type DecodeProvider struct{}

func (DecodeProvider) Name() string { return "decode" }

func (DecodeProvider) Resolve(ctx context.Context, path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Metadata{}, fmt.Errorf("decode header: %w", err)
	}
	return Metadata{
		Width:    cfg.Width,
		Height:   cfg.Height,
		MimeType: "image/" + format,
	}, nil
}

// ExifProvider parses embedded capture-time and dimension tags. Its capture
// time is authoritative: the recording instant beats any file timestamp.
type ExifProvider struct{}

func (ExifProvider) Name() string { return "exif" }

func (ExifProvider) Resolve(ctx context.Context, path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return Metadata{}, fmt.Errorf("decode tags: %w", err)
	}

	var md Metadata
	if taken, err := x.DateTime(); err == nil {
		md.CapturedAt = taken
		md.CaptureTimeAuthoritative = true
	}
	if w, err := tagInt(x, exif.PixelXDimension); err == nil {
		md.Width = w
	}
	if h, err := tagInt(x, exif.PixelYDimension); err == nil {
		md.Height = h
	}
	return md, nil
}

func tagInt(x *exif.Exif, name exif.FieldName) (int, error) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, err
	}
	return tag.Int(0)
}

// videoMime reports whether a mime type (possibly with parameters) names a
// video container.
func videoMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}
