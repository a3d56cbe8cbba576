package feed

import (
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Player plays audio previews through an external command and stops them
// when the view changes. It implements the core Session's Player hook.
type Player struct {
	mu      sync.Mutex
	argv    []string
	running []*exec.Cmd
	start   func(*exec.Cmd) error
	log     *zerolog.Logger
}

// NewPlayer uses $MOMENTLOG_PLAYER (default: "mpv --no-video --really-quiet").
func NewPlayer(log *zerolog.Logger) *Player {
	argv := strings.Fields(os.Getenv("MOMENTLOG_PLAYER"))
	if len(argv) == 0 {
		argv = []string{"mpv", "--no-video", "--really-quiet"}
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Player{argv: argv, start: (*exec.Cmd).Start, log: log}
}

// Play starts url in the background.
func (p *Player) Play(url string) error {
	if !isSafeExternalURL(url) {
		return nil
	}
	args := append(append([]string(nil), p.argv[1:]...), url)
	cmd := exec.Command(p.argv[0], args...)
	if err := p.start(cmd); err != nil {
		return err
	}
	p.mu.Lock()
	p.running = append(p.running, cmd)
	p.mu.Unlock()
	p.log.Debug().Str("url", url).Msg("preview started")
	return nil
}

// Playing returns how many previews were started and not stopped.
func (p *Player) Playing() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.running)
}

// StopAll kills every running preview.
func (p *Player) StopAll() {
	p.mu.Lock()
	running := p.running
	p.running = nil
	p.mu.Unlock()

	for _, cmd := range running {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
			go func() { _ = cmd.Wait() }()
		}
	}
}
