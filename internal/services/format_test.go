package services

import "testing"

func TestFormatResponseNilIsEmptyForEveryType(t *testing.T) {
	types := []string{
		TypeString, TypeText, TypeTextarea, TypeBoolean, TypeRadio,
		TypeCheckbox, TypeNumber, TypeCounter, TypeTimer, TypeVoice,
		TypeDate, TypeTime, TypeEmail, TypeURL, "unknown",
	}
	for _, qt := range types {
		if got := FormatResponse(nil, qt); got != "" {
			t.Fatalf("FormatResponse(nil, %q) = %q, want empty", qt, got)
		}
	}
}

func TestFormatResponseBoolean(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{true, "Sí"},
		{false, "No"},
		{"true", "Sí"},
		{"false", "No"},
		{"tal vez", "tal vez"},
	}
	for _, c := range cases {
		if got := FormatResponse(c.in, TypeBoolean); got != c.want {
			t.Fatalf("boolean %v = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatResponseStringTypes(t *testing.T) {
	if got := FormatResponse("hola", TypeString); got != "hola" {
		t.Fatalf("string = %q", got)
	}
	if got := FormatResponse("línea\nlarga", TypeTextarea); got != "línea\nlarga" {
		t.Fatalf("textarea = %q", got)
	}
}

func TestFormatResponseRadio(t *testing.T) {
	if got := FormatResponse("Opción A", TypeRadio); got != "Opción A" {
		t.Fatalf("radio = %q", got)
	}
	if got := FormatResponse(42, TypeRadio); got != "" {
		t.Fatalf("radio non-string = %q, want empty", got)
	}
}

func TestFormatResponseCheckbox(t *testing.T) {
	if got := FormatResponse([]string{"a", "b"}, TypeCheckbox); got != "a, b" {
		t.Fatalf("slice = %q", got)
	}
	if got := FormatResponse([]string{}, TypeCheckbox); got != "" {
		t.Fatalf("empty slice = %q", got)
	}
	if got := FormatResponse(`["a","b"]`, TypeCheckbox); got != "a, b" {
		t.Fatalf("json string = %q", got)
	}
	// malformed JSON falls back to the raw string, not an error
	if got := FormatResponse("a;b", TypeCheckbox); got != "a;b" {
		t.Fatalf("fallback = %q", got)
	}
}

func TestFormatResponseNumber(t *testing.T) {
	if got := FormatResponse(7, TypeCounter); got != "7" {
		t.Fatalf("int = %q", got)
	}
	if got := FormatResponse(3.5, TypeNumber); got != "3.5" {
		t.Fatalf("float = %q", got)
	}
	if got := FormatResponse("12", TypeNumber); got != "12" {
		t.Fatalf("numeric string = %q", got)
	}
	if got := FormatResponse("doce", TypeNumber); got != "" {
		t.Fatalf("non-numeric = %q, want empty", got)
	}
}

func TestFormatResponseTimer(t *testing.T) {
	sec := 60.0
	got := FormatResponse([]TimerCycle{{Alias: "Cycle 1", Seconds: &sec}}, TypeTimer)
	if got != "Cycle 1: 1:00" {
		t.Fatalf("timer with alias = %q", got)
	}
	got = FormatResponse(`[{"seconds":60}]`, TypeTimer)
	if got != "Ciclo 1: 1:00" {
		t.Fatalf("timer default alias = %q", got)
	}
	got = FormatResponse([]TimerCycle{{Alias: "X"}}, TypeTimer)
	if got != "X: Sin duración" {
		t.Fatalf("timer missing seconds = %q", got)
	}
	long := 3725.0
	got = FormatResponse([]TimerCycle{{Seconds: &long}, {Seconds: &sec}}, TypeTimer)
	if got != "Ciclo 1: 1:02:05 | Ciclo 2: 1:00" {
		t.Fatalf("timer multi-cycle = %q", got)
	}
}

func TestFormatResponseTimerDoubleEncoded(t *testing.T) {
	got := FormatResponse(`"[{\"alias\":\"A\",\"seconds\":5}]"`, TypeTimer)
	if got != "A: 0:05" {
		t.Fatalf("double-encoded timer = %q", got)
	}
}

func TestFormatResponseVoice(t *testing.T) {
	if got := FormatResponse("[Audio: a.mp3]", TypeVoice); got != "Audio grabado" {
		t.Fatalf("voice marker = %q", got)
	}
	if got := FormatResponse("no audio here", TypeVoice); got != "" {
		t.Fatalf("voice without marker = %q", got)
	}
}

func TestFormatResponseUnknownType(t *testing.T) {
	if got := FormatResponse("crudo", "misterio"); got != "crudo" {
		t.Fatalf("unknown type string = %q", got)
	}
	if got := FormatResponse(map[string]int{"x": 1}, "misterio"); got != `{"x":1}` {
		t.Fatalf("unknown type object = %q", got)
	}
}

func TestFormatResponseDeterministic(t *testing.T) {
	inputs := []struct {
		v  any
		qt string
	}{
		{`["a","b"]`, TypeCheckbox},
		{`[{"seconds":61}]`, TypeTimer},
		{true, TypeBoolean},
		{"[Audio: x.webm]", TypeVoice},
	}
	for _, in := range inputs {
		a := FormatResponse(in.v, in.qt)
		b := FormatResponse(in.v, in.qt)
		if a != b {
			t.Fatalf("FormatResponse(%v, %q) not deterministic: %q vs %q", in.v, in.qt, a, b)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{60, "1:00"},
		{754, "12:34"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.in); got != c.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRenderResponseTimerBadges(t *testing.T) {
	sec := 90.0
	r := RenderResponse([]TimerCycle{{Seconds: &sec}, {Alias: "B"}}, TypeTimer)
	if r.Kind != "timer" || len(r.Cycles) != 2 {
		t.Fatalf("render timer = %+v", r)
	}
	if r.Cycles[0].Label != "Ciclo 1" || r.Cycles[0].Duration != "1:30" {
		t.Fatalf("first cycle = %+v", r.Cycles[0])
	}
	if r.Cycles[1].Label != "B" || r.Cycles[1].Duration != "Sin duración" {
		t.Fatalf("second cycle = %+v", r.Cycles[1])
	}
}

func TestRenderResponseVoiceExtractsURL(t *testing.T) {
	r := RenderResponse("[Audio: https://cdn.example/voz-1.webm]", TypeVoice)
	if r.Kind != "audio" || r.AudioURL != "https://cdn.example/voz-1.webm" {
		t.Fatalf("render voice = %+v", r)
	}
	if r := RenderResponse("nada", TypeVoice); r.Kind != "empty" {
		t.Fatalf("render voice no marker = %+v", r)
	}
}
