package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/script"
)

func detectSource(t *testing.T, text string) []analysis.Finding {
	t.Helper()
	doc := script.Document{Name: "exp.py", Text: text}
	tree, err := script.Parse(doc)
	require.NoError(t, err)
	return New().Detect(tree, tree.Lines)
}

func findByTitle(findings []analysis.Finding, fragment string) []analysis.Finding {
	var out []analysis.Finding
	for _, f := range findings {
		if strings.Contains(f.Title, fragment) {
			out = append(out, f)
		}
	}
	return out
}

func TestStimulusInLoop(t *testing.T) {
	t.Run("visual constructor in loop", func(t *testing.T) {
		findings := detectSource(t, `for trial in range(10):
    stim = visual.TextStim(win, text='hi')
    stim.draw()
    win.flip()
`)
		hits := findByTitle(findings, "Stimulus constructed inside loop")
		require.Len(t, hits, 1)
		assert.Equal(t, analysis.Performance, hits[0].Category)
		assert.Equal(t, analysis.Warn, hits[0].Severity)
		assert.Equal(t, 2, hits[0].StartLine)
		assert.Equal(t, analysis.SourceLocal, hits[0].Source)
	})

	t.Run("factory function in loop", func(t *testing.T) {
		// End-to-end shape: construction on line 2 must be flagged.
		findings := detectSource(t, "for i in range(100):\n    s = make_stimulus()\n    s.draw()")
		hits := findByTitle(findings, "Stimulus constructed inside loop")
		require.Len(t, hits, 1)
		assert.Equal(t, analysis.Performance, hits[0].Category)
		assert.Equal(t, 2, hits[0].StartLine)
	})

	t.Run("construction outside loop is fine", func(t *testing.T) {
		findings := detectSource(t, `stim = visual.TextStim(win, text='hi')
for trial in range(10):
    stim.draw()
    win.flip()
`)
		assert.Empty(t, findByTitle(findings, "Stimulus constructed inside loop"))
	})
}

func TestSoundLoadInLoop(t *testing.T) {
	findings := detectSource(t, `for trial in range(5):
    beep = sound.Sound('A')
    beep.play()
`)
	hits := findByTitle(findings, "Sound loaded inside loop")
	require.Len(t, hits, 1)
	assert.Equal(t, analysis.Performance, hits[0].Category)
	assert.Equal(t, 2, hits[0].StartLine)
}

func TestWallClockSleep(t *testing.T) {
	findings := detectSource(t, "stim.draw()\nwin.flip()\ntime.sleep(0.5)\n")
	hits := findByTitle(findings, "Wall-clock sleep")
	require.Len(t, hits, 1)
	assert.Equal(t, analysis.Performance, hits[0].Category)
	assert.Equal(t, analysis.Warn, hits[0].Severity)
	assert.Equal(t, 3, hits[0].StartLine)
}

func TestRepeatedLiteral(t *testing.T) {
	t.Run("three occurrences fire", func(t *testing.T) {
		findings := detectSource(t, "a = 'left'\nb = 'left'\nc = 'left'\n")
		hits := findByTitle(findings, "repeated 3 times")
		require.Len(t, hits, 1)
		assert.Equal(t, analysis.BestPractice, hits[0].Category)
		assert.Equal(t, 1, hits[0].StartLine)
		assert.Equal(t, 3, hits[0].EndLine)
	})

	t.Run("two occurrences do not", func(t *testing.T) {
		findings := detectSource(t, "a = 'left'\nb = 'left'\n")
		assert.Empty(t, findByTitle(findings, "repeated"))
	})

	t.Run("small integers are ignored", func(t *testing.T) {
		findings := detectSource(t, "a = 1\nb = 1\nc = 1\nd = 1\n")
		assert.Empty(t, findByTitle(findings, "repeated"))
	})
}

func TestMissingRelease(t *testing.T) {
	t.Run("window never closed", func(t *testing.T) {
		findings := detectSource(t, "win = visual.Window()\nstim.draw()\n")
		hits := findByTitle(findings, "never closed")
		require.Len(t, hits, 1)
		assert.Equal(t, analysis.BestPractice, hits[0].Category)
		assert.Equal(t, analysis.Warn, hits[0].Severity)
		assert.Equal(t, 1, hits[0].StartLine)
	})

	t.Run("window closed", func(t *testing.T) {
		findings := detectSource(t, "win = visual.Window()\nstim.draw()\nwin.close()\ncore.quit()\n")
		assert.Empty(t, findByTitle(findings, "never closed"))
	})

	t.Run("data file never closed", func(t *testing.T) {
		findings := detectSource(t, "datafile = open('results.csv', 'w')\ndatafile.write(header)\n")
		hits := findByTitle(findings, `File handle "datafile" is never closed`)
		require.Len(t, hits, 1)
		assert.Equal(t, 1, hits[0].StartLine)
	})

	t.Run("with block does not fire", func(t *testing.T) {
		findings := detectSource(t, "with open('results.csv', 'w') as datafile:\n    datafile.write(header)\n")
		assert.Empty(t, findByTitle(findings, "File handle"))
	})
}

func TestMissingQuit(t *testing.T) {
	findings := detectSource(t, "win = visual.Window()\nwin.close()\n")
	hits := findByTitle(findings, "core.quit()")
	require.Len(t, hits, 1)
	assert.Equal(t, analysis.Info, hits[0].Severity)
	assert.Zero(t, hits[0].StartLine)
}

func TestTrialLoop(t *testing.T) {
	t.Run("fixed count with presentation", func(t *testing.T) {
		findings := detectSource(t, `for trial in range(40):
    stim.draw()
    win.flip()
`)
		hits := findByTitle(findings, "Trial loop with 40 repetitions")
		require.Len(t, hits, 1)
		assert.Equal(t, analysis.BuilderMapping, hits[0].Category)
		assert.Equal(t, 1, hits[0].StartLine)
		assert.Contains(t, hits[0].Suggestion, "nReps=40")
	})

	t.Run("loop without presentation", func(t *testing.T) {
		findings := detectSource(t, "for i in range(40):\n    total = total + i\n")
		assert.Empty(t, findByTitle(findings, "Trial loop"))
	})
}

func TestMagicKeyString(t *testing.T) {
	findings := detectSource(t, "resp = event.waitKeys(keyList=['space'])\n")
	hits := findByTitle(findings, "Bare key name")
	require.Len(t, hits, 1)
	assert.Equal(t, analysis.BestPractice, hits[0].Category)
	assert.Equal(t, 1, hits[0].StartLine)
}

func TestDetectOrdering(t *testing.T) {
	// Findings come out in rule declaration order, then line order.
	src := `time.sleep(2)
for trial in range(10):
    stim = visual.TextStim(win)
    stim.draw()
    win.flip()
    time.sleep(1)
`
	doc := script.Document{Text: src}
	tree, err := script.Parse(doc)
	require.NoError(t, err)

	d := New()
	first := d.Detect(tree, tree.Lines)
	require.NotEmpty(t, first)

	// Stimulus rule is declared before the sleep rule, so the line-3
	// construction precedes both sleeps; the sleeps arrive in line order.
	assert.Equal(t, 3, first[0].StartLine)
	assert.Contains(t, first[0].Title, "Stimulus")
	assert.Contains(t, first[1].Title, "Wall-clock")
	assert.Equal(t, 1, first[1].StartLine)
	assert.Contains(t, first[2].Title, "Wall-clock")
	assert.Equal(t, 6, first[2].StartLine)

	// Determinism: repeated runs are identical.
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, d.Detect(tree, tree.Lines))
	}
}

func TestDetectFallbackWithoutTree(t *testing.T) {
	// Broken source: only line-based rules run against the line view.
	src := "win = visual.Window(\ntime.sleep(1)\n"
	doc := script.Document{Text: src}
	_, err := script.Parse(doc)
	require.Error(t, err)

	lines := script.Lines(doc)
	findings := New().Detect(nil, lines)

	assert.NotEmpty(t, findByTitle(findings, "Wall-clock sleep"))
	assert.Empty(t, findByTitle(findings, "Trial loop"))
	for _, f := range findings {
		assert.Equal(t, analysis.SourceLocal, f.Source)
	}
}
