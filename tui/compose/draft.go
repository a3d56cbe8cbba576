package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/momentlog/momentlog/domain"
)

// Directive lines start with "/" and set draft fields instead of text:
//
//	/music <link>      /mood <emoji>     /loc <place>     /venue <name>
//	/vis public|friends|private          /date 2006-01-02
//	/attach <file>     /voice <file>     /sticker <s>     /theme <name>
//
// A line that starts with "//" is text with one leading slash removed.
var directives = []string{"music", "mood", "loc", "venue", "vis", "date", "attach", "voice", "sticker", "theme"}

// Loader reads attachment files.
type Loader func(path string) ([]byte, error)

// ParseDraft splits composed input into text and directive fields.
func ParseDraft(input string, load Loader) (domain.Draft, error) {
	if load == nil {
		load = os.ReadFile
	}
	var (
		d    domain.Draft
		text []string
	)
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") {
			text = append(text, strings.Replace(line, "//", "/", 1))
			continue
		}
		name, arg, ok := directive(trimmed)
		if !ok {
			text = append(text, line)
			continue
		}
		if err := apply(&d, name, arg, load); err != nil {
			return domain.Draft{}, err
		}
	}
	d.Text = strings.TrimSpace(strings.Join(text, "\n"))
	return d, nil
}

func directive(line string) (name, arg string, ok bool) {
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	name, arg, _ = strings.Cut(line[1:], " ")
	for _, known := range directives {
		if name == known {
			return name, strings.TrimSpace(arg), true
		}
	}
	return "", "", false
}

func apply(d *domain.Draft, name, arg string, load Loader) error {
	if arg == "" {
		return fmt.Errorf("%w: /%s needs a value", domain.ErrValidation, name)
	}
	switch name {
	case "music":
		d.MusicLink = arg
	case "mood":
		d.Mood = arg
	case "loc":
		d.Location = arg
	case "venue":
		d.Venue = arg
	case "sticker":
		d.Sticker = arg
	case "theme":
		d.Theme = arg
	case "date":
		d.MomentDate = arg
	case "vis":
		v := domain.Visibility(strings.ToLower(arg))
		if !v.Valid() {
			return fmt.Errorf("%w: unknown visibility %q", domain.ErrValidation, arg)
		}
		d.Visibility = v
	case "attach", "voice":
		data, err := load(arg)
		if err != nil {
			return fmt.Errorf("attach %s: %w", filepath.Base(arg), err)
		}
		if name == "voice" {
			d.Voice = &domain.MediaItem{Kind: domain.MediaAudio, Data: data}
			return nil
		}
		d.Media = append(d.Media, domain.MediaItem{Kind: kindOf(arg), Data: data})
	}
	return nil
}

func kindOf(path string) domain.MediaKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".webm", ".mkv":
		return domain.MediaVideo
	case ".mp3", ".m4a", ".ogg", ".wav", ".aac":
		return domain.MediaAudio
	}
	return domain.MediaImage
}
