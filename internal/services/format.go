package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TimerCycle is one measured cycle inside a timer response. Seconds is a
// pointer because field devices occasionally upload cycles without a
// duration.
type TimerCycle struct {
	Alias   string   `json:"alias,omitempty"`
	Seconds *float64 `json:"seconds,omitempty"`
}

var audioMarkerRe = regexp.MustCompile(`\[Audio: (.*?)\]`)

// FormatResponse maps a stored answer value plus its question type to the
// canonical display string used in exports. It never fails: malformed or
// unexpected input degrades to an empty string or a best-effort string so a
// single bad observation cannot abort an export.
func FormatResponse(response any, questionType string) string {
	if response == nil {
		return ""
	}
	switch questionType {
	case TypeString, TypeText, TypeTextarea:
		return stringify(response)
	case TypeBoolean:
		switch v := response.(type) {
		case bool:
			if v {
				return "Sí"
			}
			return "No"
		case string:
			switch v {
			case "true":
				return "Sí"
			case "false":
				return "No"
			}
			return v
		}
		return stringify(response)
	case TypeRadio:
		if s, ok := response.(string); ok {
			return s
		}
		return ""
	case TypeCheckbox:
		if list, ok := decodeStringList(response); ok {
			return joinNonEmpty(list, ", ")
		}
		if s, ok := response.(string); ok {
			return s
		}
		return ""
	case TypeNumber, TypeCounter:
		switch v := response.(type) {
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return v
			}
		}
		return ""
	case TypeTimer:
		if cycles, ok := decodeTimerCycles(response); ok {
			parts := make([]string, 0, len(cycles))
			for i, c := range cycles {
				label := c.Alias
				if label == "" {
					label = "Ciclo " + strconv.Itoa(i+1)
				}
				dur := "Sin duración"
				if c.Seconds != nil {
					dur = FormatDuration(*c.Seconds)
				}
				parts = append(parts, label+": "+dur)
			}
			return strings.Join(parts, " | ")
		}
		if s, ok := response.(string); ok {
			return s
		}
		return ""
	case TypeVoice:
		if url := ExtractAudioURL(response); url != "" {
			return "Audio grabado"
		}
		return ""
	default:
		if s, ok := response.(string); ok {
			return s
		}
		b, err := json.Marshal(response)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// FormatDuration renders seconds as H:MM:SS when an hour or more, M:SS
// otherwise, zero-padded.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ExtractAudioURL pulls the URL out of a "[Audio: <url>]" marker, or returns
// an empty string when the value carries no marker.
func ExtractAudioURL(response any) string {
	s, ok := response.(string)
	if !ok {
		return ""
	}
	m := audioMarkerRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// decodeTimerCycles normalizes the timer payload into cycles. Accepts a
// decoded slice, a JSON string, or a double-encoded JSON string.
func decodeTimerCycles(response any) ([]TimerCycle, bool) {
	switch v := response.(type) {
	case []TimerCycle:
		return v, true
	case string:
		var cycles []TimerCycle
		if err := json.Unmarshal([]byte(v), &cycles); err == nil {
			return cycles, true
		}
		var inner string
		if err := json.Unmarshal([]byte(v), &inner); err == nil {
			if err := json.Unmarshal([]byte(inner), &cycles); err == nil {
				return cycles, true
			}
		}
		return nil, false
	default:
		b, err := json.Marshal(response)
		if err != nil {
			return nil, false
		}
		var cycles []TimerCycle
		if err := json.Unmarshal(b, &cycles); err != nil {
			return nil, false
		}
		return cycles, true
	}
}

// decodeStringList normalizes checkbox payloads: a slice of strings, a JSON
// string of such a slice, or a double-encoded JSON string.
func decodeStringList(response any) ([]string, bool) {
	switch v := response.(type) {
	case []string:
		return v, true
	case string:
		var list []string
		if err := json.Unmarshal([]byte(v), &list); err == nil {
			return list, true
		}
		var inner string
		if err := json.Unmarshal([]byte(v), &inner); err == nil {
			if err := json.Unmarshal([]byte(inner), &list); err == nil {
				return list, true
			}
		}
		return nil, false
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringify(item))
		}
		return out, true
	default:
		return nil, false
	}
}

func joinNonEmpty(list []string, sep string) string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), "\"")
	}
}

// TimerCycleView is one rendered timer cycle badge.
type TimerCycleView struct {
	Label    string `json:"label"`
	Duration string `json:"duration"`
}

// RenderedResponse is the on-screen form of an answer: timer cycles become a
// badge list and voice recordings a playable clip URL. Same parsing rules as
// FormatResponse, different presentation.
type RenderedResponse struct {
	Kind     string           `json:"kind"` // empty, text, timer, audio
	Text     string           `json:"text,omitempty"`
	Cycles   []TimerCycleView `json:"cycles,omitempty"`
	AudioURL string           `json:"audio_url,omitempty"`
}

// RenderResponse builds the display view for a stored answer.
func RenderResponse(response any, questionType string) RenderedResponse {
	if response == nil {
		return RenderedResponse{Kind: "empty"}
	}
	switch questionType {
	case TypeTimer:
		if cycles, ok := decodeTimerCycles(response); ok {
			views := make([]TimerCycleView, 0, len(cycles))
			for i, c := range cycles {
				label := c.Alias
				if label == "" {
					label = "Ciclo " + strconv.Itoa(i+1)
				}
				dur := "Sin duración"
				if c.Seconds != nil {
					dur = FormatDuration(*c.Seconds)
				}
				views = append(views, TimerCycleView{Label: label, Duration: dur})
			}
			return RenderedResponse{Kind: "timer", Cycles: views}
		}
	case TypeVoice:
		if url := ExtractAudioURL(response); url != "" {
			return RenderedResponse{Kind: "audio", AudioURL: url}
		}
		return RenderedResponse{Kind: "empty"}
	}
	text := FormatResponse(response, questionType)
	if text == "" {
		return RenderedResponse{Kind: "empty"}
	}
	return RenderedResponse{Kind: "text", Text: text}
}
