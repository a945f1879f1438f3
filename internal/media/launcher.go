package media

import (
	"fmt"
	"net/url"
	"os/exec"
	"slices"

	"github.com/pders01/newsd/internal/config"
	"github.com/pders01/newsd/internal/logging"
)

// Launcher opens article links in programs outside the terminal.
type Launcher struct {
	defaultOpener string
	defaultArgs   []string
	players       map[Type]string
	detector      *TypeDetector

	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

func NewLauncher(cfg config.MediaConfig) *Launcher {
	return newLauncher(cfg, exec.LookPath, startDetached)
}

func newLauncher(cfg config.MediaConfig, lookPath func(string) (string, error), start func(string, ...string) error) *Launcher {
	detector, err := NewTypeDetector()
	if err != nil {
		logging.Warnf("media types unavailable, every link uses the default opener: %v", err)
		detector = &TypeDetector{config: &TypesConfig{}}
	}

	l := &Launcher{
		players:  make(map[Type]string),
		detector: detector,
		lookPath: lookPath,
		start:    start,
	}

	l.defaultOpener, l.defaultArgs = detector.currentOpener()
	if cfg.DefaultOpener != "" {
		l.defaultOpener, l.defaultArgs = cfg.DefaultOpener, nil
	}

	for t, candidates := range map[Type][]string{
		TypeVideo: cfg.Video,
		TypeAudio: cfg.Audio,
		TypeImage: cfg.Image,
		TypePDF:   cfg.PDF,
	} {
		if player := l.findCommand(candidates...); player != "" {
			l.players[t] = player
		}
	}
	return l
}

// Open starts the program for rawURL's media type and returns without
// waiting for it. Only http and https links are opened.
func (l *Launcher) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("not an http(s) link: %q", rawURL)
	}

	name, args := l.commandFor(l.detector.DetectType(rawURL))
	if name == "" {
		return fmt.Errorf("no application found to open %s", rawURL)
	}
	if err := l.start(name, append(args, rawURL)...); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

// commandFor falls back to the default opener for types with no player.
func (l *Launcher) commandFor(t Type) (string, []string) {
	if player, ok := l.players[t]; ok {
		return player, nil
	}
	return l.defaultOpener, slices.Clone(l.defaultArgs)
}

func (l *Launcher) findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := l.lookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
