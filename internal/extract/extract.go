// Package extract pulls meeting details (title and time) out of free-form
// chat messages.
//
// Extraction is an ordered rule chain with early exit: every pattern list is
// evaluated in a fixed priority order and the first matching rule wins for
// its field. Fields already known from a prior turn are never overwritten by
// a miss (merge-not-replace), which makes re-extraction idempotent.
package extract

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/juniperhq/concierge/internal/models"
	"github.com/juniperhq/concierge/internal/nltime"
)

// Word lists used across rules. Ordering inside alternations is longest
// first so the regex engine prefers the longer token.
const (
	schedulingVerbs = `book|schedule|create|plan|arrange|set up`
	articles        = `a|an|the`
	adjectives      = `new|quick|brief|urgent`
	meetingNouns    = `meeting|appointment|call|session|event`
	dayWords        = `tomorrow|today|tonight`
	weekdayNames    = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`
	timeOfDayWords  = `morning|afternoon|evening|noon|night`
)

const clockPattern = `\d{1,2}(?::\d{2})?\s*(?:am|pm)`

// timeRule is one entry of the ordered time-pattern chain.
type timeRule struct {
	name string
	re   *regexp.Regexp
}

// Ordered time patterns; the first match wins and later rules are skipped.
// Day+clock combinations are tried before a bare clock so the day context
// is captured along with the clock time.
var timeRules = []timeRule{
	{"day_then_clock", regexp.MustCompile(`(?i)\b(?:(?:next week|` + dayWords + `|` + weekdayNames + `)\s+(?:at\s+)?` + clockPattern + `)\b`)},
	{"clock_then_day", regexp.MustCompile(`(?i)\b(?:` + clockPattern + `\s+(?:on\s+)?(?:next week|` + dayWords + `|` + weekdayNames + `))\b`)},
	{"at_clock", regexp.MustCompile(`(?i)\bat\s+(` + clockPattern + `)\b`)},
	{"clock_range", regexp.MustCompile(`(?i)\b` + clockPattern + `\s*[-\x{2013}]\s*` + clockPattern + `\b`)},
	{"bare_clock", regexp.MustCompile(`(?i)\b` + clockPattern + `\b`)},
	{"day_word", regexp.MustCompile(`(?i)\b(?:` + dayWords + `)\b`)},
	{"weekday", regexp.MustCompile(`(?i)\b(?:` + weekdayNames + `)\b`)},
	{"relative_week", regexp.MustCompile(`(?i)\bnext week\b`)},
}

// titleRule is one entry of the ordered title-pattern chain. Each extractor
// returns the raw candidate, or "" when the rule does not apply.
type titleRule struct {
	name    string
	extract func(msg string) string
}

var (
	quotedRegex     = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	labelRegex      = regexp.MustCompile(`(?i)\b(?:title|subject|regarding)\s*:\s*(.+)$`)
	meetingPrepRe   = regexp.MustCompile(`(?i)\b(?:` + meetingNouns + `)\s+(?:for|about|regarding|on|to discuss)\s+(.+)$`)
	letsMeetRe      = regexp.MustCompile(`(?i)\blet'?s\s+meet\s+(?:about|for|to discuss|regarding)\s+(.+)$`)
	scheduleForRe   = regexp.MustCompile(`(?i)\b(?:` + schedulingVerbs + `)\s+(?:` + articles + `)?\s*(?:` + meetingNouns + `)\s+(?:for|about|regarding)\s+(.+)$`)
	discussRe       = regexp.MustCompile(`(?i)\b(?:we\s+need\s+to\s+|let'?s\s+)?(?:discuss|talk about)\s+(.+)$`)
	leadingVerbRe   = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:` + schedulingVerbs + `)\s+(?:(?:` + articles + `)\s+)?(?:(?:` + adjectives + `)\s+)?(.+)$`)
	trailingNounRe  = regexp.MustCompile(`(?i)\s+(?:` + meetingNouns + `)\s*$`)
	leadingPhraseRe = regexp.MustCompile(`(?i)^(?:(?:` + articles + `)\s+)?(?:(?:` + meetingNouns + `)\s+(?:for|about|regarding)\s+)?`)
	leadingAdjRe    = regexp.MustCompile(`(?i)^(?:` + adjectives + `)\s+`)

	questionStartRe = regexp.MustCompile(`(?i)^(?:can you|could you|would you|should i|please could)\b`)
	pronounStartRe  = regexp.MustCompile(`(?i)^(?:you|they|he|she|it)\s`)
	bareVerbRe      = regexp.MustCompile(`(?i)^(?:` + schedulingVerbs + `)(?:\s+(?:` + articles + `))?$`)
	bareNounRe      = regexp.MustCompile(`(?i)^(?:` + meetingNouns + `)$`)
	bareTimeWordRe  = regexp.MustCompile(`(?i)^(?:` + dayWords + `|` + weekdayNames + `|` + timeOfDayWords + `|here|there|office|next week)$`)
	bareClockRe     = regexp.MustCompile(`(?i)^(?:` + clockPattern + `|\d+(?::\d+)?)$`)
	bareArticleRe   = regexp.MustCompile(`(?i)^(?:` + articles + `)$`)

	leadingVerbStripRe = regexp.MustCompile(`(?i)^(?:please\s+)?(?:` + schedulingVerbs + `)\s+(?:(?:` + articles + `)\s+)?`)

	dayContextRe    = regexp.MustCompile(`(?i)\b(?:next week|` + dayWords + `|` + weekdayNames + `|` + timeOfDayWords + `)\b`)
	trailingPrepRe  = regexp.MustCompile(`(?i)\s+(?:at|on|for|in|by)\s*$`)
	danglingAtRe    = regexp.MustCompile(`(?i)\bat\s*$`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	leadingSymbolRe = regexp.MustCompile(`^[^\p{L}\p{N}"'(]+`)
)

var titleRules = []titleRule{
	{"quoted", func(msg string) string {
		if m := quotedRegex.FindStringSubmatch(msg); m != nil {
			if m[1] != "" {
				return m[1]
			}
			return m[2]
		}
		return ""
	}},
	{"label_prefix", firstGroup(labelRegex)},
	{"meeting_preposition", firstGroup(meetingPrepRe)},
	{"lets_meet", firstGroup(letsMeetRe)},
	{"schedule_for", firstGroup(scheduleForRe)},
	{"discussion", firstGroup(discussRe)},
	{"leading_verb", func(msg string) string {
		m := leadingVerbRe.FindStringSubmatch(msg)
		if m == nil {
			return ""
		}
		rest := m[1]
		// "book a meeting for X" leaves "meeting for X" here; the shared
		// post-clean strips the meeting phrase.
		if rest == msg || strings.TrimSpace(rest) == strings.TrimSpace(msg) {
			return ""
		}
		return rest
	}},
	{"catch_all", func(msg string) string {
		return trailingNounRe.ReplaceAllString(msg, "")
	}},
}

func firstGroup(re *regexp.Regexp) func(string) string {
	return func(msg string) string {
		if m := re.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
		return ""
	}
}

// Extract produces updated partial meeting details from a raw message and
// the details accumulated on prior turns. Either field of the result may be
// empty; the caller decides readiness from both being set. Known prior
// fields are never discarded.
func Extract(message string, prior models.PartialDetails) models.PartialDetails {
	result := models.PartialDetails{Title: prior.Title, Time: prior.Time}
	msg := strings.TrimSpace(message)
	if msg == "" {
		return result
	}

	// Comma-split fast path: "<title candidate>, <time candidate>".
	if title, timeVal, ok := commaFastPath(msg); ok {
		if result.Title == "" {
			result.Title = title
		}
		if result.Time == "" {
			result.Time = timeVal
		}
		if result.Title != "" && result.Time != "" {
			slog.Debug("extract.Extract: comma fast path resolved both fields", "title", result.Title, "time", result.Time)
			return result
		}
	}

	foundTime := ""
	if result.Time == "" {
		for _, rule := range timeRules {
			if m := rule.re.FindString(msg); m != "" {
				foundTime = strings.TrimSpace(m)
				// The at_clock rule captures only the clock substring.
				if rule.name == "at_clock" {
					if g := rule.re.FindStringSubmatch(msg); g != nil {
						foundTime = strings.TrimSpace(g[1])
					}
				}
				result.Time = foundTime
				slog.Debug("extract.Extract: time rule matched", "rule", rule.name, "time", foundTime)
				break
			}
		}
	} else {
		foundTime = result.Time
	}

	if result.Title == "" {
		cleaned := cleanForTitle(msg, foundTime)
		for _, rule := range titleRules {
			candidate := rule.extract(cleaned)
			if candidate == "" {
				continue
			}
			candidate = postCleanTitle(candidate)
			if !validTitle(candidate) {
				continue
			}
			result.Title = candidate
			slog.Debug("extract.Extract: title rule matched", "rule", rule.name, "title", candidate)
			break
		}
	}

	result.Title = finalizeTitle(result.Title)
	if result.Title == "" {
		result.Title = prior.Title
	}
	return result
}

// commaFastPath handles "<segment-A>, <segment-B>" messages where segment-B
// carries a time indicator and segment-A survives verb/noun stripping.
func commaFastPath(msg string) (title, timeVal string, ok bool) {
	idx := strings.Index(msg, ",")
	if idx <= 0 || idx == len(msg)-1 {
		return "", "", false
	}
	segA := strings.TrimSpace(msg[:idx])
	segB := strings.TrimSpace(msg[idx+1:])
	if segA == "" || segB == "" {
		return "", "", false
	}
	if !nltime.HasClockTime(segB) && !dayContextRe.MatchString(segB) {
		return "", "", false
	}

	title = postCleanTitle(leadingVerbStripRe.ReplaceAllString(segA, ""))
	if len(title) < models.MinTitleLength || !validTitle(title) {
		return "", "", false
	}
	// Keep the full segment so day context survives normalization; fall
	// back to the clock substring when the segment has no day words.
	timeVal = segB
	if !dayContextRe.MatchString(segB) {
		if clock := nltime.FindClockTime(segB); clock != "" {
			timeVal = clock
		}
	}
	return title, timeVal, true
}

// cleanForTitle strips the extracted time fragment, generic day words,
// trailing prepositions, and stray commas so the time does not leak into
// the title.
func cleanForTitle(msg, timeVal string) string {
	cleaned := msg
	if timeVal != "" {
		cleaned = strings.Replace(cleaned, timeVal, "", 1)
	}
	cleaned = dayContextRe.ReplaceAllString(cleaned, "")
	cleaned = danglingAtRe.ReplaceAllString(strings.TrimSpace(cleaned), "")
	cleaned = strings.ReplaceAll(cleaned, ",", " ")
	cleaned = trailingPrepRe.ReplaceAllString(strings.TrimSpace(cleaned), "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
}

// postCleanTitle normalizes a raw title candidate: leading articles and
// meeting phrases, leading adjectives, trailing meeting nouns, trailing
// punctuation, repeated whitespace.
func postCleanTitle(candidate string) string {
	c := strings.TrimSpace(candidate)
	c = leadingPhraseRe.ReplaceAllString(c, "")
	c = leadingAdjRe.ReplaceAllString(c, "")
	c = trailingNounRe.ReplaceAllString(c, "")
	c = trailingPrepRe.ReplaceAllString(c, "")
	c = strings.TrimRight(c, " \t.,;:!?-")
	c = whitespaceRe.ReplaceAllString(c, " ")
	return strings.TrimSpace(c)
}

// validTitle is the acceptance gate for a title candidate.
func validTitle(candidate string) bool {
	if len(candidate) < models.MinTitleLength {
		return false
	}
	switch {
	case questionStartRe.MatchString(candidate),
		pronounStartRe.MatchString(candidate),
		bareVerbRe.MatchString(candidate),
		bareNounRe.MatchString(candidate),
		bareTimeWordRe.MatchString(candidate),
		bareClockRe.MatchString(candidate),
		bareArticleRe.MatchString(candidate):
		return false
	}
	return true
}

// finalizeTitle applies the last normalization pass. It returns "" for
// candidates that end up too short, too long, or punctuation-only.
func finalizeTitle(title string) string {
	if title == "" {
		return ""
	}
	t := leadingSymbolRe.ReplaceAllString(title, "")
	t = strings.TrimRightFunc(t, func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return false
		}
		// Business punctuation allowed at the end of a title.
		return !strings.ContainsRune(`.)%+"'`, r)
	})
	t = strings.TrimSpace(whitespaceRe.ReplaceAllString(t, " "))
	if len(t) < models.MinTitleLength || len(t) > models.MaxTitleLength {
		return ""
	}
	if strings.IndexFunc(t, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }) < 0 {
		return ""
	}
	return t
}
