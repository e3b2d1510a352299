package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t1920\t1080\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t200\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t96.5\tFile\n" +
	"5\t1\t1\t1\t1\t2\t70\t10\t50\t20\t91\tEdit\n" +
	"5\t1\t2\t1\t1\t1\t100\t300\t40\t20\t88\tSave\n" +
	"5\t1\t2\t1\t1\t2\t150\t300\t30\t20\t90\tas\n" +
	"5\t1\t2\t1\t1\t3\t190\t300\t40\t20\t80\t\"...\n"

type fakeRunner struct {
	out  []byte
	err  error
	args []string
}

func (f *fakeRunner) Output(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.args = args
	return f.out, f.err
}

type fakeCapture struct{ err error }

func (f fakeCapture) Capture(context.Context) (screen.Screenshot, error) {
	return screen.Screenshot{ID: "s1", Path: "/tmp/s1.png"}, f.err
}

func TestParseTSV(t *testing.T) {
	t.Parallel()

	text, err := ParseTSV([]byte(sampleTSV))
	require.NoError(t, err)

	require.Len(t, text.Words, 5)
	assert.Equal(t, "File Edit\nSave as \"...", text.Text)
	assert.InDelta(t, 0.891, text.Confidence, 0.001)
	assert.Equal(t, Box{Left: 10, Top: 10, Width: 50, Height: 20}, text.Words[0].Box)
	assert.Len(t, text.Lines(), 2)
}

func TestParseTSV_Empty(t *testing.T) {
	t.Parallel()

	text, err := ParseTSV(nil)
	require.NoError(t, err)
	assert.Empty(t, text.Words)
	assert.Zero(t, text.Confidence)
}

func TestTesseract_Extract(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{out: []byte(sampleTSV)}
	ocr := NewTesseract(r, "", "eng+chi_sim")
	text, err := ocr.Extract(context.Background(), screen.Screenshot{ID: "x", Path: "/tmp/x.png"})
	require.NoError(t, err)
	assert.Len(t, text.Words, 5)
	assert.Equal(t, []string{"/tmp/x.png", "stdout", "-l", "eng+chi_sim", "tsv"}, r.args)

	_, err = ocr.Extract(context.Background(), screen.Screenshot{ID: "nofile"})
	assert.Error(t, err)

	_, err = NewTesseract(&fakeRunner{err: errors.New("boom")}, "", "").Extract(context.Background(), screen.Screenshot{Path: "p"})
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	t.Parallel()

	text, err := ParseTSV([]byte(sampleTSV))
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		want   Box
		found  bool
	}{
		{name: "single word", target: "edit", want: Box{Left: 70, Top: 10, Width: 50, Height: 20}, found: true},
		{name: "multi word", target: "Save as", want: Box{Left: 100, Top: 300, Width: 80, Height: 20}, found: true},
		{name: "does not cross lines", target: "Edit Save", found: false},
		{name: "missing", target: "Quit", found: false},
		{name: "blank", target: "  ", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Find(text, tt.target)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLocator(t *testing.T) {
	t.Parallel()

	l := NewLocator(fakeCapture{}, NewTesseract(&fakeRunner{out: []byte(sampleTSV)}, "", ""))
	p, ok, err := l.Locate(context.Background(), "Save as")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, screen.Point{X: 140, Y: 310}, p)

	_, ok, err = l.Locate(context.Background(), "Quit")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = NewLocator(fakeCapture{err: errors.New("x")}, nil).Locate(context.Background(), "a")
	assert.Error(t, err)
}
