package intent

import (
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/booking-assistant/internal/extract"
	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/internal/textnorm"
)

// Input is one message plus the stage it arrived in.
type Input struct {
	Raw string
	// Normalized is computed from Raw when empty.
	Normalized string
	Stage      session.Stage
	// Now anchors date detection. Only the presence of a date matters here.
	Now time.Time
}

var (
	cancelRE       = regexp.MustCompile(`\b(?:cancel|cancell?ing|call off|calling off|delete my|remove my|drop my)\b`)
	bookRE         = regexp.MustCompile(`\b(?:book|booking|schedule|set up|setup|reserve|appointment|meeting|call|slot for)\b`)
	availabilityRE = regexp.MustCompile(`\b(?:available|availability|free|open|openings|what times|when can)\b`)
	negativeRE     = regexp.MustCompile(`\b(?:no|nope|nah|don't|dont|do not|keep it|keep|never ?mind|not)\b`)
	affirmativeRE  = regexp.MustCompile(`\b(?:yes|y|yeah|yep|yup|sure|ok|okay|confirm|confirmed|correct|do it|please do|absolutely|go ahead|definitely)\b`)
)

type rule struct {
	name string
	// stages restricts the rule; empty means every stage.
	stages []session.Stage
	// except excludes stages.
	except []session.Stage
	match  func(in Input) (Intent, bool)
}

func (r rule) appliesTo(stage session.Stage) bool {
	for _, s := range r.except {
		if s == stage {
			return false
		}
	}
	if len(r.stages) == 0 {
		return true
	}
	for _, s := range r.stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Classifier evaluates an ordered rule table; the first match wins.
type Classifier struct {
	rules []rule
}

func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRules()}
}

// Rules returns the rule names in evaluation order.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.name
	}
	return names
}

// Classify never fails: anything unmatched is KindUnknown.
func (c *Classifier) Classify(in Input) Intent {
	if in.Normalized == "" {
		in.Normalized = textnorm.Normalize(in.Raw)
	}
	if in.Stage == "" {
		in.Stage = session.StageIdle
	}
	for _, r := range c.rules {
		if !r.appliesTo(in.Stage) {
			continue
		}
		if out, ok := r.match(in); ok {
			out.Rule = r.name
			if out.Slot == nil && in.Stage == session.StagePresentingSlots &&
				(out.Kind == KindBook || out.Kind == KindCheckAvailability) {
				out.Slot, _ = ParseSlotRef(in.Normalized)
			}
			return out
		}
	}
	return Intent{Kind: KindUnknown, Rule: "fallback", Text: in.Raw}
}

func defaultRules() []rule {
	confirming := []session.Stage{session.StageAwaitingCancelConfirmation}
	titling := []session.Stage{session.StageAwaitingTitle}
	return []rule{
		{
			// Repeating the cancel request while asked to confirm it is a yes.
			name:   "cancel_restated",
			stages: confirming,
			match: func(in Input) (Intent, bool) {
				if cancelRE.MatchString(in.Normalized) && !negativeRE.MatchString(in.Normalized) {
					return Intent{Kind: KindConfirmCancel, Affirmative: true}, true
				}
				return Intent{}, false
			},
		},
		{
			name:   "cancel",
			except: confirming,
			match: func(in Input) (Intent, bool) {
				if cancelRE.MatchString(in.Normalized) {
					return Intent{Kind: KindCancel}, true
				}
				return Intent{}, false
			},
		},
		{
			name:   "book",
			except: append(titling, confirming...),
			match: func(in Input) (Intent, bool) {
				if bookRE.MatchString(in.Normalized) {
					return Intent{Kind: KindBook}, true
				}
				return Intent{}, false
			},
		},
		{
			name:   "availability",
			except: append(titling, confirming...),
			match: func(in Input) (Intent, bool) {
				if availabilityRE.MatchString(in.Normalized) {
					return Intent{Kind: KindCheckAvailability}, true
				}
				return Intent{}, false
			},
		},
		{
			name:   "confirm_cancel",
			stages: confirming,
			match: func(in Input) (Intent, bool) {
				switch {
				case negativeRE.MatchString(in.Normalized):
					return Intent{Kind: KindConfirmCancel, Affirmative: false}, true
				case affirmativeRE.MatchString(in.Normalized):
					return Intent{Kind: KindConfirmCancel, Affirmative: true}, true
				}
				return Intent{}, false
			},
		},
		{
			name:   "slot_selection",
			stages: []session.Stage{session.StagePresentingSlots},
			match: func(in Input) (Intent, bool) {
				if ref, ok := ParseSlotRef(in.Normalized); ok {
					return Intent{Kind: KindProvideSlotSelection, Slot: ref}, true
				}
				return Intent{}, false
			},
		},
		{
			name:   "date_clarification",
			stages: []session.Stage{session.StageAwaitingDateClarification},
			match: func(in Input) (Intent, bool) {
				if !extract.Extract(in.Normalized, in.Now).IsEmpty() {
					return Intent{Kind: KindBook}, true
				}
				return Intent{}, false
			},
		},
		{
			name:   "title",
			stages: titling,
			match: func(in Input) (Intent, bool) {
				if strings.TrimSpace(in.Raw) == "" {
					return Intent{}, false
				}
				return Intent{Kind: KindProvideTitle, Title: CleanTitle(in.Raw)}, true
			},
		},
	}
}

var titleLeadIns = []string{"call it ", "name it ", "title it ", "title: ", "title is ", "it's ", "its "}

// CleanTitle trims whitespace, surrounding quotes, terminal punctuation and
// a leading "call it" style phrase. Inner text keeps its original case.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	lower := strings.ToLower(title)
	for _, lead := range titleLeadIns {
		if strings.HasPrefix(lower, lead) && len(title) > len(lead) {
			title = title[len(lead):]
			break
		}
	}
	for {
		trimmed := strings.TrimSpace(title)
		trimmed = strings.Trim(trimmed, "\"'`“”‘’")
		trimmed = strings.TrimRight(trimmed, ".!?,;:")
		if trimmed == title {
			return title
		}
		title = trimmed
	}
}
