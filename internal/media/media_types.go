package media

import (
	_ "embed"
	"fmt"
	"net/url"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed media_types.toml
var mediaTypesTOML []byte

type Type int

const (
	TypeUnknown Type = iota
	TypeVideo
	TypeAudio
	TypeImage
	TypePDF
)

func (t Type) String() string {
	switch t {
	case TypeVideo:
		return "video"
	case TypeAudio:
		return "audio"
	case TypeImage:
		return "image"
	case TypePDF:
		return "pdf"
	default:
		return "link"
	}
}

type TypeConfig struct {
	Extensions  []string `toml:"extensions"`
	URLPatterns []string `toml:"url_patterns"`
}

type PlatformConfig struct {
	DefaultOpener string   `toml:"default_opener"`
	Args          []string `toml:"args"`
}

type TypesConfig struct {
	Video     TypeConfig                `toml:"video"`
	Audio     TypeConfig                `toml:"audio"`
	Image     TypeConfig                `toml:"image"`
	PDF       TypeConfig                `toml:"pdf"`
	Platforms map[string]PlatformConfig `toml:"platforms"`
}

type TypeDetector struct {
	config *TypesConfig
}

func NewTypeDetector() (*TypeDetector, error) {
	var config TypesConfig
	if err := toml.Unmarshal(mediaTypesTOML, &config); err != nil {
		return nil, fmt.Errorf("parsing media_types.toml: %w", err)
	}
	return &TypeDetector{config: &config}, nil
}

// DetectType classifies a link by its path extension, then by host and
// path patterns. Query strings and fragments never count as an extension.
func (d *TypeDetector) DetectType(rawURL string) Type {
	u, err := url.Parse(strings.ToLower(rawURL))
	if err != nil {
		return TypeUnknown
	}

	ordered := []struct {
		t   Type
		cfg TypeConfig
	}{
		{TypeVideo, d.config.Video},
		{TypeAudio, d.config.Audio},
		{TypeImage, d.config.Image},
		{TypePDF, d.config.PDF},
	}

	if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" {
		for _, o := range ordered {
			if slices.Contains(o.cfg.Extensions, ext) {
				return o.t
			}
		}
	}

	target := u.Host + u.Path
	for _, o := range ordered {
		for _, pattern := range o.cfg.URLPatterns {
			if strings.Contains(target, pattern) {
				return o.t
			}
		}
	}
	return TypeUnknown
}

// DefaultOpener returns the platform's "open this link" command and the
// arguments that go before the URL.
func (d *TypeDetector) DefaultOpener(goos string) (string, []string) {
	if pc, ok := d.config.Platforms[goos]; ok && pc.DefaultOpener != "" {
		return pc.DefaultOpener, pc.Args
	}
	if pc, ok := d.config.Platforms["fallback"]; ok && pc.DefaultOpener != "" {
		return pc.DefaultOpener, pc.Args
	}
	return "xdg-open", nil
}

func (d *TypeDetector) currentOpener() (string, []string) {
	return d.DefaultOpener(runtime.GOOS)
}
