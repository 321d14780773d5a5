package quality

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

// Report holds the outcome of a single quality assessment. Score is in
// [0, 100] where 100 means no defect was detected. Reasons lists one entry
// per triggered heuristic, in a fixed order, and is empty at score 100.
type Report struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Acceptable reports whether the score meets the given threshold.
func (r Report) Acceptable(threshold int) bool {
	return r.Score >= threshold
}

// Config tunes the assessment heuristics. All penalties are additive
// deductions from a base score of 100.
type Config struct {
	// Threshold is the minimum acceptable score (0-100).
	Threshold int

	// MinAlphanumericRatio is the expected minimum ratio of letters, digits
	// and whitespace. Shortfall is penalized by AlphanumericWeight per unit.
	MinAlphanumericRatio float64
	AlphanumericWeight   float64

	// MaxSpecialCharRatio is the tolerated ratio of characters outside
	// letters, digits, whitespace and AllowedPunctuation. Excess is
	// penalized by SpecialCharWeight per unit.
	MaxSpecialCharRatio float64
	SpecialCharWeight   float64
	AllowedPunctuation  string

	// MinValidWordRatio is the expected minimum ratio of word-like tokens.
	// The check only runs when the text has more than MinTokensForWordCheck
	// tokens. A token is word-like when it contains at least one letter and
	// its rune length is within [MinWordLength, MaxWordLength].
	MinValidWordRatio     float64
	ValidWordWeight       float64
	MinTokensForWordCheck int
	MinWordLength         int
	MaxWordLength         int

	// MinAvgWordLength and MaxAvgWordLength bound the mean rune length of
	// word-like tokens. Out-of-band averages cost AvgWordLengthPenalty.
	MinAvgWordLength     float64
	MaxAvgWordLength     float64
	AvgWordLengthPenalty float64

	// RepeatedRunPenalty is charged per run of RepeatedRunLength or more
	// identical consecutive characters, up to RepeatedRunPenaltyCap.
	RepeatedRunLength     int
	RepeatedRunPenalty    float64
	RepeatedRunPenaltyCap float64

	// MinTextLength is the rune count under which text is considered too
	// short to score reliably, costing ShortTextPenalty.
	MinTextLength    int
	ShortTextPenalty float64
}

// DefaultConfig returns the reference heuristic tuning.
func DefaultConfig() Config {
	return Config{
		Threshold:             70,
		MinAlphanumericRatio:  0.70,
		AlphanumericWeight:    50,
		MaxSpecialCharRatio:   0.10,
		SpecialCharWeight:     100,
		AllowedPunctuation:    `.,!?;:()-'"@#$%&_`,
		MinValidWordRatio:     0.50,
		ValidWordWeight:       60,
		MinTokensForWordCheck: 5,
		MinWordLength:         1,
		MaxWordLength:         50,
		MinAvgWordLength:      2,
		MaxAvgWordLength:      15,
		AvgWordLengthPenalty:  20,
		RepeatedRunLength:     5,
		RepeatedRunPenalty:    10,
		RepeatedRunPenaltyCap: 30,
		MinTextLength:         20,
		ShortTextPenalty:      15,
	}
}

// Validate checks the configuration for out-of-range values.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("quality: threshold must be in [0, 100], got %d", c.Threshold)
	}
	if c.RepeatedRunLength < 2 {
		return fmt.Errorf("quality: repeated run length must be at least 2, got %d", c.RepeatedRunLength)
	}
	if c.MinWordLength < 1 || c.MaxWordLength < c.MinWordLength {
		return fmt.Errorf("quality: invalid word length bounds [%d, %d]", c.MinWordLength, c.MaxWordLength)
	}
	return nil
}

// Assessor scores extracted text. It holds no mutable state after
// construction and is safe for concurrent use.
type Assessor struct {
	cfg     Config
	runExpr *regexp2.Regexp
}

// New creates an assessor from the given configuration.
func New(cfg Config) (*Assessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Backreferences are outside RE2, hence regexp2 instead of the standard
	// regexp package.
	expr, err := regexp2.Compile(fmt.Sprintf(`(.)\1{%d,}`, cfg.RepeatedRunLength-1), 0)
	if err != nil {
		return nil, fmt.Errorf("quality: compile run pattern: %w", err)
	}
	return &Assessor{cfg: cfg, runExpr: expr}, nil
}

// MustNew is like New but panics on invalid configuration. Intended for
// default configurations known to be valid.
func MustNew(cfg Config) *Assessor {
	a, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return a
}

// Threshold returns the configured acceptance threshold.
func (a *Assessor) Threshold() int {
	return a.cfg.Threshold
}

// Accept reports whether the report meets the configured threshold.
func (a *Assessor) Accept(r Report) bool {
	return r.Acceptable(a.cfg.Threshold)
}

// Assess scores a block of extracted text against the configured
// heuristics. It is a pure function of its input: no I/O, no shared state,
// and identical input always yields identical output. A low score is data
// for the caller's fallback decision, never an error.
func (a *Assessor) Assess(text string) Report {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return Report{Score: 0, Reasons: []string{"Empty or whitespace-only text"}}
	}

	cfg := a.cfg
	var penalties float64
	var reasons []string

	total := 0
	alphanum := 0
	special := 0
	for _, r := range cleaned {
		total++
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			alphanum++
		case strings.ContainsRune(cfg.AllowedPunctuation, r):
			// Common punctuation is neither alphanumeric nor suspicious.
		default:
			special++
		}
	}

	// 1. Alphanumeric ratio.
	alphanumRatio := float64(alphanum) / float64(total)
	if alphanumRatio < cfg.MinAlphanumericRatio {
		penalties += (cfg.MinAlphanumericRatio - alphanumRatio) * cfg.AlphanumericWeight
		reasons = append(reasons, fmt.Sprintf("Low alphanumeric ratio (%.1f%%)", alphanumRatio*100))
	}

	// 2. Special-character ratio. Categorization is Unicode-aware so
	// accented letters and non-Latin scripts never count as special.
	specialRatio := float64(special) / float64(total)
	if specialRatio > cfg.MaxSpecialCharRatio {
		penalties += (specialRatio - cfg.MaxSpecialCharRatio) * cfg.SpecialCharWeight
		reasons = append(reasons, fmt.Sprintf("Excessive special characters (%.1f%%)", specialRatio*100))
	}

	// 3. Valid-word ratio.
	tokens := strings.Fields(cleaned)
	var validWords []string
	for _, w := range tokens {
		if a.isValidWord(w) {
			validWords = append(validWords, w)
		}
	}
	if len(tokens) > cfg.MinTokensForWordCheck {
		wordRatio := float64(len(validWords)) / float64(len(tokens))
		if wordRatio < cfg.MinValidWordRatio {
			penalties += (cfg.MinValidWordRatio - wordRatio) * cfg.ValidWordWeight
			reasons = append(reasons, fmt.Sprintf("Low valid word ratio (%.1f%%)", wordRatio*100))
		}
	}

	// 4. Average word length over the valid-word set.
	if len(validWords) > 0 {
		runes := 0
		for _, w := range validWords {
			runes += len([]rune(w))
		}
		avg := float64(runes) / float64(len(validWords))
		if avg < cfg.MinAvgWordLength || avg > cfg.MaxAvgWordLength {
			penalties += cfg.AvgWordLengthPenalty
			reasons = append(reasons, fmt.Sprintf("Unusual average word length (%.1f)", avg))
		}
	}

	// 5. Repeated-character runs, a common scanner artifact.
	if runs := a.countRepeatedRuns(cleaned); runs > 0 {
		penalties += math.Min(float64(runs)*cfg.RepeatedRunPenalty, cfg.RepeatedRunPenaltyCap)
		reasons = append(reasons, fmt.Sprintf("Repeated character sequences detected (%d)", runs))
	}

	// 6. Minimum length.
	if total < cfg.MinTextLength {
		penalties += cfg.ShortTextPenalty
		reasons = append(reasons, fmt.Sprintf("Text too short for reliable quality assessment (%d chars)", total))
	}

	// Floor keeps any non-zero penalty visible in the integer score, so a
	// report with reasons never scores a clean 100.
	score := int(math.Floor(100 - penalties))
	if score < 0 {
		score = 0
	}
	return Report{Score: score, Reasons: reasons}
}

func (a *Assessor) isValidWord(w string) bool {
	n := 0
	hasLetter := false
	for _, r := range w {
		n++
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter && n >= a.cfg.MinWordLength && n <= a.cfg.MaxWordLength
}

func (a *Assessor) countRepeatedRuns(s string) int {
	count := 0
	m, err := a.runExpr.FindStringMatch(s)
	for err == nil && m != nil {
		count++
		m, err = a.runExpr.FindNextMatch(m)
	}
	return count
}
