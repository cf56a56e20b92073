// Package lyrics parses LRC text and tracks the line active at a playback time.
package lyrics

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/josephniet/audiovis/errs"
)

// Line is one timed lyric line. Time is in seconds with the file offset applied.
type Line struct {
	Index int
	Text  string
	Time  float64
}

// Options controls Load.
type Options struct {
	Text           string
	SkipBlankLines bool
}

var (
	timeTag = regexp.MustCompile(`^\[(\d{1,3}):(\d{1,2})(?:[.:](\d{1,3}))?\]`)
	metaTag = regexp.MustCompile(`^\[([A-Za-z#]+):(.*)\]\s*$`)
	wordTag = regexp.MustCompile(`<\d{1,3}:\d{1,2}(?:[.:]\d{1,3})?>`)
)

// Lyrics holds a parsed LRC document. It is not safe for concurrent use.
type Lyrics struct {
	lines   []Line
	tags    map[string]string
	current int
	onLine  func(Line)
}

// New returns an empty Lyrics.
func New() *Lyrics {
	return &Lyrics{current: -1, tags: map[string]string{}}
}

// OnLine registers fn to run whenever Sync moves to a different line.
func (l *Lyrics) OnLine(fn func(Line)) { l.onLine = fn }

// Load parses opts.Text and replaces the current document.
func (l *Lyrics) Load(opts Options) error {
	l.lines, l.tags, l.current = nil, map[string]string{}, -1
	if strings.TrimSpace(opts.Text) == "" {
		return errs.Validation("lyrics.Load", "empty lyrics")
	}

	lines, tags := parse(opts.Text, opts.SkipBlankLines)
	if len(lines) == 0 {
		return errs.Validation("lyrics.Load", "no timed lines")
	}
	l.lines, l.tags = lines, tags
	return nil
}

// Reset drops the loaded document.
func (l *Lyrics) Reset() {
	l.lines, l.tags, l.current = nil, map[string]string{}, -1
}

// Lines returns the parsed lines ordered by time.
func (l *Lyrics) Lines() []Line { return l.lines }

// Tag returns an ID tag such as "ti" or "ar".
func (l *Lyrics) Tag(name string) string { return l.tags[strings.ToLower(name)] }

// Current returns the active line, if playback has reached the first one.
func (l *Lyrics) Current() (Line, bool) {
	if l.current < 0 {
		return Line{}, false
	}
	return l.lines[l.current], true
}

// Sync selects the last line starting at or before t and reports it.
// OnLine fires only when the selection changes.
func (l *Lyrics) Sync(t float64) (Line, bool) {
	idx := sort.Search(len(l.lines), func(i int) bool { return l.lines[i].Time > t }) - 1
	if idx == l.current {
		return l.Current()
	}
	l.current = idx
	if idx < 0 {
		return Line{}, false
	}
	if l.onLine != nil {
		l.onLine(l.lines[idx])
	}
	return l.lines[idx], true
}

func parse(text string, skipBlank bool) ([]Line, map[string]string) {
	var (
		lines  []Line
		tags   = map[string]string{}
		offset float64
	)

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		var stamps []float64
		rest := raw
		for {
			m := timeTag.FindStringSubmatch(rest)
			if m == nil {
				break
			}
			stamps = append(stamps, stamp(m[1], m[2], m[3]))
			rest = rest[len(m[0]):]
		}

		if len(stamps) == 0 {
			if m := metaTag.FindStringSubmatch(raw); m != nil {
				key := strings.ToLower(m[1])
				val := strings.TrimSpace(m[2])
				tags[key] = val
				if key == "offset" {
					if ms, err := strconv.ParseFloat(val, 64); err == nil {
						offset = ms / 1000
					}
				}
			}
			continue
		}

		body := strings.TrimSpace(wordTag.ReplaceAllString(rest, ""))
		if body == "" && skipBlank {
			continue
		}
		for _, s := range stamps {
			lines = append(lines, Line{Text: body, Time: s})
		}
	}

	// A positive offset makes lyrics appear sooner.
	for i := range lines {
		lines[i].Time = max(0, lines[i].Time-offset)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Time < lines[j].Time })
	for i := range lines {
		lines[i].Index = i
	}
	return lines, tags
}

func stamp(mm, ss, frac string) float64 {
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	t := float64(m*60 + s)
	if frac != "" {
		f, _ := strconv.Atoi(frac)
		div := 1.0
		for range len(frac) {
			div *= 10
		}
		t += float64(f) / div
	}
	return t
}
