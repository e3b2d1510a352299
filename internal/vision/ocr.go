// Package vision recognises on-screen text and resolves text targets to
// screen coordinates.
package vision

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/metalagman/screenpilot/internal/command"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/rs/zerolog/log"
)

// Box is a pixel rectangle in screenshot coordinates.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Union returns the smallest box covering b and o.
func (b Box) Union(o Box) Box {
	left, top := min(b.Left, o.Left), min(b.Top, o.Top)
	right := max(b.Left+b.Width, o.Left+o.Width)
	bottom := max(b.Top+b.Height, o.Top+o.Height)
	return Box{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Center returns the box center.
func (b Box) Center() screen.Point {
	return screen.Point{X: b.Left + b.Width/2, Y: b.Top + b.Height/2}
}

// Word is one recognised word.
type Word struct {
	Text       string  `json:"text"`
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
	Line       int     `json:"line"`
}

// Text is the OCR output for one screenshot.
type Text struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Lines groups words by line in reading order.
func (t Text) Lines() [][]Word {
	var lines [][]Word
	last := -1
	for _, w := range t.Words {
		if w.Line != last || len(lines) == 0 {
			lines = append(lines, nil)
			last = w.Line
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], w)
	}
	return lines
}

// OCR extracts text from a screenshot.
type OCR interface {
	Extract(ctx context.Context, shot screen.Screenshot) (Text, error)
}

// Tesseract runs the tesseract CLI in TSV mode.
type Tesseract struct {
	runner    command.Runner
	bin       string
	languages string
}

// NewTesseract creates an OCR engine. Empty values mean "tesseract" and "eng".
func NewTesseract(runner command.Runner, bin, languages string) *Tesseract {
	if bin == "" {
		bin = "tesseract"
	}
	if languages == "" {
		languages = "eng"
	}
	return &Tesseract{runner: runner, bin: bin, languages: languages}
}

// Extract recognises the words in shot.
func (t *Tesseract) Extract(ctx context.Context, shot screen.Screenshot) (Text, error) {
	if shot.Path == "" {
		return Text{}, fmt.Errorf("screenshot %s has no backing file", shot.ID)
	}
	out, err := t.runner.Output(ctx, t.bin, shot.Path, "stdout", "-l", t.languages, "tsv")
	if err != nil {
		return Text{}, fmt.Errorf("run tesseract: %w", err)
	}
	text, err := ParseTSV(out)
	if err != nil {
		return Text{}, err
	}
	log.Debug().Str("screenshot", shot.ID).Int("words", len(text.Words)).Float64("confidence", text.Confidence).Msg("ocr finished")
	return text, nil
}

// tesseract TSV columns.
const (
	colLevel = iota
	colPage
	colBlock
	colPar
	colLine
	colWord
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	tsvColumns
)

// ParseTSV decodes tesseract TSV output. Rows without text or with a
// negative confidence are structural and skipped. Fields are never quoted.
func ParseTSV(data []byte) (Text, error) {
	var (
		res     Text
		lines   []string
		cur     []string
		lineKey string
		lineNo  = -1
		confSum float64
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, strings.Join(cur, " "))
			cur = nil
		}
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		rec := strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t")
		if len(rec) < tsvColumns || rec[colLevel] == "level" {
			continue
		}
		word := strings.TrimSpace(rec[colText])
		conf, err := strconv.ParseFloat(rec[colConf], 64)
		if word == "" || err != nil || conf < 0 {
			continue
		}
		box, err := parseBox(rec)
		if err != nil {
			return Text{}, err
		}
		key := strings.Join(rec[colPage:colWord], "/")
		if key != lineKey {
			flush()
			lineKey = key
			lineNo++
		}
		cur = append(cur, word)
		res.Words = append(res.Words, Word{Text: word, Box: box, Confidence: conf / 100, Line: lineNo})
		confSum += conf
	}
	if err := sc.Err(); err != nil {
		return Text{}, fmt.Errorf("read tesseract tsv: %w", err)
	}
	flush()

	res.Text = strings.Join(lines, "\n")
	if n := len(res.Words); n > 0 {
		res.Confidence = confSum / float64(n) / 100
	}
	return res, nil
}

func parseBox(rec []string) (Box, error) {
	var v [4]int
	for i, col := range []int{colLeft, colTop, colWidth, colHeight} {
		n, err := strconv.Atoi(rec[col])
		if err != nil {
			return Box{}, fmt.Errorf("parse tesseract box %q: %w", rec[col], err)
		}
		v[i] = n
	}
	return Box{Left: v[0], Top: v[1], Width: v[2], Height: v[3]}, nil
}
