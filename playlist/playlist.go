// Package playlist manages an ordered track list with wraparound navigation.
package playlist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Track describes one playable item. Lyrics holds LRC text, not a path.
type Track struct {
	Src    string `yaml:"src"`
	Title  string `yaml:"title"`
	Cover  string `yaml:"cover,omitempty"`
	Lyrics string `yaml:"-"`
}

// TrackFromPath creates a Track by parsing the filename.
// Supports "Artist - Title" format, otherwise uses the filename as title.
// A sibling .lrc file with the same base name is read as lyrics.
func TrackFromPath(path string) Track {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	t := Track{Src: path, Title: name}
	if parts := strings.SplitN(name, " - ", 2); len(parts) == 2 {
		t.Title = strings.TrimSpace(parts[0]) + " - " + strings.TrimSpace(parts[1])
	}
	lrc := strings.TrimSuffix(path, filepath.Ext(path)) + ".lrc"
	if data, err := os.ReadFile(lrc); err == nil {
		t.Lyrics = string(data)
	}
	return t
}

// DisplayName returns the title, falling back to the file name.
func (t Track) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	if t.Src == "" {
		return ""
	}
	return filepath.Base(t.Src)
}

// Validate reports a track that cannot be loaded.
func (t Track) Validate() error {
	if strings.TrimSpace(t.Src) == "" {
		return fmt.Errorf("track %q has no source", t.Title)
	}
	return nil
}

// Playlist is an ordered list with a current position. Next and Prev wrap around.
type Playlist struct {
	tracks []Track
	pos    int
}

// New creates a Playlist holding tracks.
func New(tracks ...Track) *Playlist {
	return &Playlist{tracks: append([]Track(nil), tracks...)}
}

// Add appends tracks to the playlist.
func (p *Playlist) Add(tracks ...Track) {
	p.tracks = append(p.tracks, tracks...)
}

// Remove drops every track with the given source and reports whether any was removed.
// The current track stays current if it survives; otherwise the position is clamped.
func (p *Playlist) Remove(src string) bool {
	var cur string
	if len(p.tracks) > 0 {
		cur = p.tracks[p.pos].Src
	}
	kept := p.tracks[:0]
	for _, t := range p.tracks {
		if t.Src != src {
			kept = append(kept, t)
		}
	}
	removed := len(kept) != len(p.tracks)
	p.tracks = kept
	if !removed {
		return false
	}
	p.pos = min(p.pos, max(0, len(p.tracks)-1))
	for i, t := range p.tracks {
		if t.Src == cur {
			p.pos = i
			break
		}
	}
	return true
}

// Len returns the number of tracks.
func (p *Playlist) Len() int { return len(p.tracks) }

// Current returns the currently selected track and its index, or -1 when empty.
func (p *Playlist) Current() (Track, int) {
	if len(p.tracks) == 0 {
		return Track{}, -1
	}
	return p.tracks[p.pos], p.pos
}

// Index returns the current position, or -1 when empty.
func (p *Playlist) Index() int {
	if len(p.tracks) == 0 {
		return -1
	}
	return p.pos
}

// Next advances to (i+1) mod N. It returns false only when the playlist is empty.
func (p *Playlist) Next() (Track, bool) {
	if len(p.tracks) == 0 {
		return Track{}, false
	}
	p.pos = (p.pos + 1) % len(p.tracks)
	return p.tracks[p.pos], true
}

// Prev moves to (i-1+N) mod N. It returns false only when the playlist is empty.
func (p *Playlist) Prev() (Track, bool) {
	if len(p.tracks) == 0 {
		return Track{}, false
	}
	p.pos = (p.pos - 1 + len(p.tracks)) % len(p.tracks)
	return p.tracks[p.pos], true
}

// GoTo selects the track at index i.
func (p *Playlist) GoTo(i int) (Track, error) {
	if i < 0 || i >= len(p.tracks) {
		return Track{}, fmt.Errorf("playlist: index %d out of range [0, %d)", i, len(p.tracks))
	}
	p.pos = i
	return p.tracks[i], nil
}

// Tracks returns all tracks in the playlist.
func (p *Playlist) Tracks() []Track { return p.tracks }

// fileEntry is one item of a playlist file. Lyrics is a path to an .lrc file.
type fileEntry struct {
	Src    string `yaml:"src"`
	Title  string `yaml:"title"`
	Cover  string `yaml:"cover"`
	Lyrics string `yaml:"lyrics"`
}

type file struct {
	Tracks []fileEntry `yaml:"tracks"`
}

// LoadFile reads a YAML playlist. Relative paths resolve against the file's directory.
//
//	tracks:
//	  - src: "Run On - Jamie Bower.mp3"
//	    title: Run On
//	    cover: run-on.jpg
//	    lyrics: Run On.lrc
func LoadFile(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("playlist: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("playlist: parse %s: %w", path, err)
	}
	if len(f.Tracks) == 0 {
		return nil, errors.New("playlist: no tracks in " + path)
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	pl := New()
	for i, e := range f.Tracks {
		t := Track{Src: resolve(e.Src), Title: e.Title, Cover: resolve(e.Cover)}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("playlist: entry %d: %w", i, err)
		}
		if t.Title == "" {
			t.Title = TrackFromPath(t.Src).Title
		}
		if e.Lyrics != "" {
			lrc, err := os.ReadFile(resolve(e.Lyrics))
			if err != nil {
				return nil, fmt.Errorf("playlist: entry %d lyrics: %w", i, err)
			}
			t.Lyrics = string(lrc)
		}
		pl.Add(t)
	}
	return pl, nil
}
