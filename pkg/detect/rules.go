package detect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/script"
)

// DefaultRules returns the built-in rules in declaration order.
func DefaultRules() []Rule {
	return []Rule{
		stimulusInLoopRule{},
		soundLoadInLoopRule{},
		wallClockSleepRule{},
		repeatedLiteralRule{},
		missingReleaseRule{},
		missingQuitRule{},
		trialLoopRule{},
		magicKeyStringRule{},
	}
}

// stimulusConstructors are visual constructors that are expensive to build
// per iteration.
var stimulusConstructors = map[string]struct{}{
	"visual.TextStim":    {},
	"visual.ImageStim":   {},
	"visual.GratingStim": {},
	"visual.NoiseStim":   {},
	"visual.DotStim":     {},
	"visual.ShapeStim":   {},
	"visual.Circle":      {},
	"visual.Rect":        {},
	"visual.Line":        {},
	"visual.Polygon":     {},
}

func excerpt(lines []script.Line, number int) string {
	if number < 1 || number > len(lines) {
		return ""
	}
	return lines[number-1].Text
}

// stimulusInLoopRule flags stimulus construction inside loop bodies.
type stimulusInLoopRule struct{}

func (stimulusInLoopRule) ID() string      { return "stimulus-in-loop" }
func (stimulusInLoopRule) NeedsTree() bool { return true }

// isStimulusConstruction reports whether a call builds a stimulus: either a
// known visual constructor, or a factory-style function with "stim" in its
// name whose result is assigned (this excludes method calls like stim.draw).
func isStimulusConstruction(c script.Call, lines []script.Line) bool {
	if _, ok := stimulusConstructors[c.Name]; ok {
		return true
	}
	if strings.Contains(c.Name, ".") || !strings.Contains(strings.ToLower(c.Name), "stim") {
		return false
	}
	re := regexp.MustCompile(`=\s*` + regexp.QuoteMeta(c.Name) + `\s*\(`)
	return re.MatchString(excerpt(lines, c.Line))
}

func (stimulusInLoopRule) Apply(tree *script.Tree, lines []script.Line) []analysis.Finding {
	var findings []analysis.Finding
	for _, lp := range tree.Loops {
		for _, c := range tree.CallsIn(lp) {
			if !isStimulusConstruction(c, lines) {
				continue
			}
			findings = append(findings, analysis.Finding{
				Category:    analysis.Performance,
				Severity:    analysis.Warn,
				Title:       fmt.Sprintf("Stimulus constructed inside loop (%s)", c.Name),
				Explanation: "Constructing a stimulus on every iteration allocates textures and buffers each time. Create it once before the loop and update its properties inside.",
				Excerpt:     excerpt(lines, c.Line),
				Suggestion:  "stim = " + c.Name + "(...)  # before the loop, then stim.setText(...) / stim.setPos(...) inside",
				StartLine:   c.Line,
				Source:      analysis.SourceLocal,
			})
		}
	}
	return findings
}

// soundLoadInLoopRule flags sound loading inside loop bodies.
type soundLoadInLoopRule struct{}

func (soundLoadInLoopRule) ID() string      { return "sound-load-in-loop" }
func (soundLoadInLoopRule) NeedsTree() bool { return true }

func (soundLoadInLoopRule) Apply(tree *script.Tree, lines []script.Line) []analysis.Finding {
	var findings []analysis.Finding
	for _, lp := range tree.Loops {
		for _, c := range tree.CallsIn(lp) {
			if c.Name != "sound.Sound" {
				continue
			}
			findings = append(findings, analysis.Finding{
				Category:    analysis.Performance,
				Severity:    analysis.Warn,
				Title:       "Sound loaded inside loop",
				Explanation: "Loading audio files inside the trial loop adds unpredictable delays. Pre-load the sounds before the trials start.",
				Excerpt:     excerpt(lines, c.Line),
				Suggestion:  "sounds = [sound.Sound(f) for f in files]  # before the loop",
				StartLine:   c.Line,
				Source:      analysis.SourceLocal,
			})
		}
	}
	return findings
}

var sleepRe = regexp.MustCompile(`\btime\.sleep\s*\(`)

// wallClockSleepRule flags time.sleep where a frame-accurate wait exists.
type wallClockSleepRule struct{}

func (wallClockSleepRule) ID() string      { return "wall-clock-sleep" }
func (wallClockSleepRule) NeedsTree() bool { return false }

func (wallClockSleepRule) Apply(_ *script.Tree, lines []script.Line) []analysis.Finding {
	var findings []analysis.Finding
	for _, l := range lines {
		if l.Blank || l.Comment || !sleepRe.MatchString(l.Text) {
			continue
		}
		findings = append(findings, analysis.Finding{
			Category:    analysis.Performance,
			Severity:    analysis.Warn,
			Title:       "Wall-clock sleep used for stimulus timing",
			Explanation: "time.sleep() is not synchronized to the display refresh. Use core.wait() or frame-based timing with win.flip().",
			Excerpt:     l.Text,
			Suggestion:  "core.wait(duration) or count frames between win.flip() calls",
			StartLine:   l.Number,
			Source:      analysis.SourceLocal,
		})
	}
	return findings
}

// repeatedLiteralRule flags literals repeated 3+ times that would read better
// as a named constant.
type repeatedLiteralRule struct{}

func (repeatedLiteralRule) ID() string      { return "repeated-literal" }
func (repeatedLiteralRule) NeedsTree() bool { return false }

const repeatThreshold = 3

// boringLiterals are too common to be worth naming.
var boringLiterals = map[string]struct{}{
	"0": {}, "1": {}, "2": {}, "''": {}, `""`: {},
}

func (repeatedLiteralRule) Apply(_ *script.Tree, lines []script.Line) []analysis.Finding {
	type occurrence struct {
		count     int
		firstLine int
		lastLine  int
	}
	seen := make(map[string]*occurrence)
	for _, lit := range script.Literals(lines) {
		if _, boring := boringLiterals[lit.Value]; boring {
			continue
		}
		occ, ok := seen[lit.Value]
		if !ok {
			occ = &occurrence{firstLine: lit.Line}
			seen[lit.Value] = occ
		}
		occ.count++
		occ.lastLine = lit.Line
	}

	values := make([]string, 0, len(seen))
	for v, occ := range seen {
		if occ.count >= repeatThreshold {
			values = append(values, v)
		}
	}
	sort.Slice(values, func(i, j int) bool {
		a, b := seen[values[i]], seen[values[j]]
		if a.firstLine != b.firstLine {
			return a.firstLine < b.firstLine
		}
		return values[i] < values[j]
	})

	var findings []analysis.Finding
	for _, v := range values {
		occ := seen[v]
		findings = append(findings, analysis.Finding{
			Category:    analysis.BestPractice,
			Severity:    analysis.Info,
			Title:       fmt.Sprintf("Literal %s repeated %d times", v, occ.count),
			Explanation: "A repeated literal is easier to maintain as a named constant defined once near the top of the script.",
			Suggestion:  fmt.Sprintf("Define a constant for %s and use it everywhere", v),
			StartLine:   occ.firstLine,
			EndLine:     occ.lastLine,
			Source:      analysis.SourceLocal,
		})
	}
	return findings
}

// acquisitions pair an acquire pattern with the message for leaving it
// unreleased. `with open(...)` blocks never match the assignment form.
var acquisitions = []struct {
	re          *regexp.Regexp
	title       string
	explanation string
}{
	{
		re:          regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*visual\.Window\s*\(`),
		title:       "Window %q is never closed",
		explanation: "The window is opened but never released. Close it when the experiment ends so the display and GPU resources are freed.",
	},
	{
		re:          regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*open\s*\(`),
		title:       "File handle %q is never closed",
		explanation: "An open data file that is never closed can lose buffered trial data if the script exits early. Close it, or use a with block.",
	},
}

// missingReleaseRule flags window or file acquisitions without a matching
// close call.
type missingReleaseRule struct{}

func (missingReleaseRule) ID() string      { return "missing-release" }
func (missingReleaseRule) NeedsTree() bool { return false }

func (missingReleaseRule) Apply(_ *script.Tree, lines []script.Line) []analysis.Finding {
	var findings []analysis.Finding
	for _, l := range lines {
		if l.Blank || l.Comment {
			continue
		}
		for _, acq := range acquisitions {
			m := acq.re.FindStringSubmatch(l.Text)
			if m == nil {
				continue
			}
			name := m[1]
			released := false
			for _, other := range lines {
				if strings.Contains(other.Text, name+".close(") {
					released = true
					break
				}
			}
			if released {
				continue
			}
			findings = append(findings, analysis.Finding{
				Category:    analysis.BestPractice,
				Severity:    analysis.Warn,
				Title:       fmt.Sprintf(acq.title, name),
				Explanation: acq.explanation,
				Excerpt:     l.Text,
				Suggestion:  name + ".close()  # at the end of the experiment",
				StartLine:   l.Number,
				Source:      analysis.SourceLocal,
			})
		}
	}
	return findings
}

// missingQuitRule flags experiments that open a window but never call
// core.quit().
type missingQuitRule struct{}

func (missingQuitRule) ID() string      { return "missing-quit" }
func (missingQuitRule) NeedsTree() bool { return false }

func (missingQuitRule) Apply(_ *script.Tree, lines []script.Line) []analysis.Finding {
	hasWindow, hasQuit := false, false
	for _, l := range lines {
		if strings.Contains(l.Text, "visual.Window(") {
			hasWindow = true
		}
		if strings.Contains(l.Text, "core.quit(") {
			hasQuit = true
		}
	}
	if !hasWindow || hasQuit {
		return nil
	}
	return []analysis.Finding{{
		Category:    analysis.BestPractice,
		Severity:    analysis.Info,
		Title:       "core.quit() is never called",
		Explanation: "Ending with core.quit() makes sure timers and the window backend shut down cleanly.",
		Suggestion:  "core.quit()  # at the end of the experiment",
		Source:      analysis.SourceLocal,
	}}
}

var presentationCalls = []string{".draw", ".flip", ".present", ".play"}

// trialLoopRule maps fixed-count presentation loops to a Builder TrialHandler.
type trialLoopRule struct{}

func (trialLoopRule) ID() string      { return "trial-loop" }
func (trialLoopRule) NeedsTree() bool { return true }

func (trialLoopRule) Apply(tree *script.Tree, lines []script.Line) []analysis.Finding {
	var findings []analysis.Finding
	for _, lp := range tree.Loops {
		if lp.FixedCount == 0 {
			continue
		}
		presents := false
		for _, c := range tree.CallsIn(lp) {
			for _, suffix := range presentationCalls {
				if strings.HasSuffix(c.Name, suffix) {
					presents = true
				}
			}
		}
		if !presents {
			continue
		}
		findings = append(findings, analysis.Finding{
			Category:    analysis.BuilderMapping,
			Severity:    analysis.Info,
			Title:       fmt.Sprintf("Trial loop with %d repetitions", lp.FixedCount),
			Explanation: "A fixed-count loop presenting stimuli maps onto a Builder TrialHandler, which also takes care of data logging and conditions files.",
			Excerpt:     excerpt(lines, lp.HeaderLine),
			Suggestion:  fmt.Sprintf("TrialHandler component with nReps=%d", lp.FixedCount),
			StartLine:   lp.HeaderLine,
			EndLine:     lp.BodyEnd,
			Source:      analysis.SourceLocal,
		})
	}
	return findings
}

var (
	keyContextRe = regexp.MustCompile(`keyList|waitKeys|getKeys|\bkey\b|\bresponse\b`)
	keyNameRe    = regexp.MustCompile(`'(?:space|escape|return|left|right|up|down)'|"(?:space|escape|return|left|right|up|down)"`)
)

// magicKeyStringRule flags bare key-name literals in response handling.
type magicKeyStringRule struct{}

func (magicKeyStringRule) ID() string      { return "magic-key-string" }
func (magicKeyStringRule) NeedsTree() bool { return false }

func (magicKeyStringRule) Apply(_ *script.Tree, lines []script.Line) []analysis.Finding {
	var findings []analysis.Finding
	for _, l := range lines {
		if l.Blank || l.Comment {
			continue
		}
		if !keyContextRe.MatchString(l.Text) || !keyNameRe.MatchString(l.Text) {
			continue
		}
		findings = append(findings, analysis.Finding{
			Category:    analysis.BestPractice,
			Severity:    analysis.Info,
			Title:       "Bare key name in response handling",
			Explanation: "Naming response keys as constants keeps the experiment's key bindings in one place.",
			Excerpt:     l.Text,
			Suggestion:  "KEY_RESPONSE = 'space'  # then use KEY_RESPONSE in keyList",
			StartLine:   l.Number,
			Source:      analysis.SourceLocal,
		})
	}
	return findings
}
