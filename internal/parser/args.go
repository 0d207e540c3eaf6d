package parser

import (
	"strings"
	"time"

	"github.com/manav03panchal/chime/internal/model"
)

// Phrase is a reminder described in words, such as
// `Stand up at 9:30 on weekdays` or `Drink water every 2h until friday`.
type Phrase struct {
	Title string
	At    string
	On    string
	Every string
	From  string
	Until string
}

var phraseKeywords = map[string]bool{
	"at": true, "on": true, "every": true, "from": true, "until": true,
}

// ParsePhrase splits args into the title and the raw keyword clauses.
// Words before the first keyword form the title; quote a title that
// contains a keyword.
func ParsePhrase(args []string) *Phrase {
	p := &Phrase{}
	tokens := tokenize(strings.Join(args, " "))

	var (
		title   []string
		clause  string
		clauses = make(map[string][]string)
	)
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if phraseKeywords[lower] {
			clause = lower
			continue
		}
		if clause == "" {
			title = append(title, tok)
			continue
		}
		clauses[clause] = append(clauses[clause], tok)
	}

	p.Title = strings.Join(title, " ")
	p.At = strings.Join(clauses["at"], " ")
	p.On = strings.Join(clauses["on"], " ")
	p.Every = strings.Join(clauses["every"], " ")
	p.From = strings.Join(clauses["from"], " ")
	p.Until = strings.Join(clauses["until"], " ")
	return p
}

// Merge overrides phrase clauses with non-empty flag values.
func (p *Phrase) Merge(flags Phrase) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Title, flags.Title)
	set(&p.At, flags.At)
	set(&p.On, flags.On)
	set(&p.Every, flags.Every)
	set(&p.From, flags.From)
	set(&p.Until, flags.Until)
}

// Schedule builds the raw schedule the phrase describes. Unset fields stay
// zero for the normalizer to fill. A one-off reminder with no date whose
// time has already passed today moves to tomorrow.
func (p *Phrase) Schedule(now time.Time, loc *time.Location) (model.Schedule, error) {
	var s model.Schedule
	if loc == nil {
		loc = time.UTC
	}
	today := model.DateOf(now.In(loc))

	if p.At != "" {
		times, err := ParseTimes(p.At)
		if err != nil {
			return s, err
		}
		s.Times = times
	}

	switch every := strings.ToLower(p.Every); every {
	case "":
		if p.On == "" {
			s.Mode = model.ModeOnce
			break
		}
		if days, err := ParseWeekdays(p.On); err == nil {
			s.Mode = model.ModeWeekly
			s.DaysOfWeek = days
			break
		}
		d, err := ParseDate(p.On, now, loc)
		if err != nil {
			return s, err
		}
		s.Mode = model.ModeOnce
		s.StartDate = d
	case "day", "daily":
		s.Mode = model.ModeDaily
	case "weekday", "weekdays", "weekend", "weekends":
		s.Mode = model.ModeWeekly
		s.DaysOfWeek, _ = ParseWeekdays(every)
	case "week", "weekly":
		s.Mode = model.ModeWeekly
		if p.On != "" {
			days, err := ParseWeekdays(p.On)
			if err != nil {
				return s, err
			}
			s.DaysOfWeek = days
		}
	case "month", "monthly":
		s.Mode = model.ModeMonthly
	default:
		if days, err := ParseWeekdays(every); err == nil {
			s.Mode = model.ModeWeekly
			s.DaysOfWeek = days
			break
		}
		iv, err := ParseInterval(every)
		if err != nil {
			return s, err
		}
		s.Mode = model.ModeInterval
		s.Interval = &iv
	}

	if p.From != "" {
		d, err := ParseDate(p.From, now, loc)
		if err != nil {
			return s, err
		}
		if s.Mode == model.ModeOnce && !s.StartDate.IsZero() && d != s.StartDate {
			return s, NewDateError(p.From)
		}
		s.StartDate = d
	}
	if p.Until != "" {
		d, err := ParseDate(p.Until, now, loc)
		if err != nil {
			return s, err
		}
		s.EndDate = &d
	}

	if s.Mode == model.ModeOnce && s.StartDate.IsZero() && len(s.Times) > 0 {
		s.StartDate = today
		if !today.At(s.Times[0], loc).After(now) {
			s.StartDate = today.AddDays(1)
		}
	}
	return s, nil
}

// tokenize splits input into tokens, preserving quoted strings.
func tokenize(input string) []string {
	var tokens []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, r := range input {
		if (r == '"' || r == '\'') && !inQuote {
			inQuote = true
			quoteChar = r
			continue
		}
		if r == quoteChar && inQuote {
			inQuote = false
			quoteChar = 0
			continue
		}
		if r == ' ' && !inQuote {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}
