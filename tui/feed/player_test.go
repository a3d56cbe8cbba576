package feed

import (
	"errors"
	"os/exec"
	"testing"
)

func TestPlayer_TracksAndStops(t *testing.T) {
	p := NewPlayer(nil)
	var started [][]string
	p.start = func(cmd *exec.Cmd) error {
		started = append(started, cmd.Args)
		return nil
	}

	if err := p.Play("https://cdn.example/preview.mp3"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := p.Play("file:///etc/passwd"); err != nil {
		t.Fatalf("unsafe urls are ignored, got %v", err)
	}
	if len(started) != 1 || started[0][len(started[0])-1] != "https://cdn.example/preview.mp3" {
		t.Fatalf("started = %v", started)
	}
	if p.Playing() != 1 {
		t.Fatalf("playing = %d", p.Playing())
	}
	p.StopAll()
	if p.Playing() != 0 {
		t.Fatalf("playing after stop = %d", p.Playing())
	}
}

func TestPlayer_StartError(t *testing.T) {
	p := NewPlayer(nil)
	boom := errors.New("no mpv")
	p.start = func(*exec.Cmd) error { return boom }
	if err := p.Play("https://cdn.example/a.mp3"); !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if p.Playing() != 0 {
		t.Fatal("failed start must not be tracked")
	}
}

func TestOpenTarget(t *testing.T) {
	m := moment("a", "alice", 1)
	if openTarget(m) != "" {
		t.Fatal("no target expected")
	}
	m.Music.PreviewURL = "https://deezer/p.mp3"
	if openTarget(m) != "https://deezer/p.mp3" {
		t.Fatal("music preview expected")
	}
	m.Media = append(m.Media, mediaAt("javascript:alert(1)"), mediaAt("https://img/1.jpg"))
	if openTarget(m) != "https://img/1.jpg" {
		t.Fatalf("first safe media expected, got %q", openTarget(m))
	}
}
