package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/siherrmann/graphrag/model"
)

// SizeFunc measures text in the unit of the context budget
type SizeFunc func(text string) int

// RuneCount measures text in characters
func RuneCount(text string) int {
	return utf8.RuneCountInString(text)
}

// TokenCounter measures text in tokens of a tiktoken encoding such as "cl100k_base"
func TokenCounter(encoding string) (SizeFunc, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoding %s: %w", encoding, err)
	}
	return func(text string) int {
		return len(tke.Encode(text, nil, nil))
	}, nil
}

// NewSizeFunc returns the measure configured by unit
func NewSizeFunc(unit model.SizeUnit, encoding string) (SizeFunc, error) {
	switch unit {
	case model.SizeUnitTokens:
		return TokenCounter(encoding)
	case model.SizeUnitChars, "":
		return RuneCount, nil
	}
	return nil, fmt.Errorf("unknown size unit %q", unit)
}

// ContextFormatter renders ranked evidence into a budget bounded context
type ContextFormatter struct {
	Size   SizeFunc
	Header string
}

// NewContextFormatter creates a formatter measuring with size. A nil size counts runes.
func NewContextFormatter(size SizeFunc, header string) *ContextFormatter {
	if size == nil {
		size = RuneCount
	}
	return &ContextFormatter{Size: size, Header: header}
}

// Format appends evidence in rank order while the whole text, header and
// newline separators included, fits the budget. Parts are never cut. The
// first part that does not fit freezes the bundle and it and all later
// evidence count as dropped. The header is only written together with the
// first evidence.
func (f *ContextFormatter) Format(ranked []*model.Evidence, budget int) *model.ContextBundle {
	bundle := model.NewContextBundle(budget)
	text := ""

	for i, e := range ranked {
		part := FormatEvidence(i+1, e)

		candidate := part
		if text != "" {
			candidate = text + "\n" + part
		} else if f.Header != "" {
			candidate = f.Header + "\n" + part
		}

		size := f.Size(candidate)
		if size > budget {
			bundle.Freeze()
			bundle.Dropped = len(ranked) - i
			break
		}

		if text == "" && f.Header != "" {
			bundle.Parts = append(bundle.Parts, f.Header)
		}
		bundle.Parts = append(bundle.Parts, part)
		bundle.Size = size
		bundle.Included++
		text = candidate
	}
	return bundle
}

// FormatEvidence renders one fact as
//
//	[n] Source (Type) --[RELATION]--> Target (Type)
//
// followed by the sentence, time and source url of the relation when present.
func FormatEvidence(n int, e *model.Evidence) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s --[%s]--> %s", n, e.Source.Label(), e.Relation.Type, e.Target.Label())

	props := e.Relation.Properties
	if sentence := props.String(model.PropertySentence); sentence != "" {
		fmt.Fprintf(&sb, "\n    %s", sentence)
	}

	var details []string
	if t := props.String(model.PropertyTime); t != "" {
		details = append(details, "time: "+t)
	}
	if url := props.String(model.PropertyURL); url != "" {
		details = append(details, "source: "+url)
	}
	if len(details) > 0 {
		fmt.Fprintf(&sb, "\n    %s", strings.Join(details, " | "))
	}
	return sb.String()
}
