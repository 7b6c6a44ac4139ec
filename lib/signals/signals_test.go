package signals

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestDecodeHypermedia(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect bool
	}{
		{"with HX-Request true", "true", true},
		{"with HX-Request TRUE", "TRUE", true},
		{"with padded value", "  true ", true},
		{"with HX-Request false", "false", false},
		{"with other value", "yes", false},
		{"with number", "1", false},
		{"without header", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Request", tt.header)
			}

			got := FromRequest(req).Hypermedia
			if got != tt.expect {
				t.Errorf("Hypermedia = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestDecodeAllHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("HX-Request", "true")
	h.Set("HX-Boosted", "true")
	h.Set("HX-Target", "items-list")
	h.Set("HX-Trigger-Name", "refresh-click")
	h.Set("HX-Trigger", "refresh-btn")
	h.Set("HX-Current-URL", "http://localhost:3000/items")
	h.Set("HX-Prompt", "yes")
	h.Set("X-Unrelated", "ignored")

	got := Decode(h)
	want := RequestSignals{
		Hypermedia:  true,
		Boosted:     true,
		Target:      "items-list",
		TriggerName: "refresh-click",
		TriggerID:   "refresh-btn",
		CurrentURL:  "http://localhost:3000/items",
		Prompt:      "yes",
	}
	if got != want {
		t.Errorf("Decode() = %+v, want %+v", got, want)
	}
}

func TestDecodeIsCaseInsensitive(t *testing.T) {
	h := http.Header{}
	h["hx-request"] = []string{"true"}
	h.Add("hx-target", "main")

	// Direct map writes bypass canonicalisation, so only the Add survives.
	got := Decode(h)
	if got.Target != "main" {
		t.Errorf("Target = %q, want %q", got.Target, "main")
	}

	h2 := http.Header{}
	h2.Add("hx-request", "true")
	if !Decode(h2).Hypermedia {
		t.Error("Hypermedia = false for lower-case header name, want true")
	}
}

func TestDecodeDefaults(t *testing.T) {
	if got := Decode(nil); got != (RequestSignals{}) {
		t.Errorf("Decode(nil) = %+v, want zero value", got)
	}
	if got := FromRequest(nil); got != (RequestSignals{}) {
		t.Errorf("FromRequest(nil) = %+v, want zero value", got)
	}

	h := http.Header{}
	h.Set("HX-Target", "   ")
	got := Decode(h)
	if got.HasTarget() {
		t.Error("HasTarget() = true for blank header, want false")
	}
	if !got.WantsFullDocument() {
		t.Error("WantsFullDocument() = false without HX-Request, want true")
	}
}

func TestWantsFullDocument(t *testing.T) {
	tests := []struct {
		name   string
		sig    RequestSignals
		expect bool
	}{
		{"plain browser", RequestSignals{}, true},
		{"htmx request", RequestSignals{Hypermedia: true}, false},
		{"boosted", RequestSignals{Hypermedia: true, Boosted: true}, false},
		{"history restore", RequestSignals{Hypermedia: true, HistoryRestore: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sig.WantsFullDocument(); got != tt.expect {
				t.Errorf("WantsFullDocument() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestKindHeader(t *testing.T) {
	for _, k := range Kinds() {
		if k.Header() == "" {
			t.Errorf("Kind(%d).Header() is empty", k)
		}
	}
	if got := Kind(99).String(); got != "unknown" {
		t.Errorf("Kind(99).String() = %q, want %q", got, "unknown")
	}
	if got := KindTriggerName.String(); got != "HX-Trigger-Name" {
		t.Errorf("KindTriggerName.String() = %q", got)
	}
}

func TestHeaderSetOrder(t *testing.T) {
	var hs HeaderSet
	hs = hs.Set("HX-Retarget", "#a")
	hs = hs.Set("HX-Reswap", "innerHTML")
	hs = hs.Set("hx-retarget", "#b")
	hs = hs.Add("Vary", "HX-Request")

	wantNames := []string{"HX-Retarget", "HX-Reswap", "Vary"}
	if got := hs.Names(); !reflect.DeepEqual(got, wantNames) {
		t.Errorf("Names() = %v, want %v", got, wantNames)
	}
	if got := hs.Get("HX-RETARGET"); got != "#b" {
		t.Errorf("Get() = %q, want %q", got, "#b")
	}
	if hs.Has("HX-Redirect") {
		t.Error("Has(HX-Redirect) = true, want false")
	}
}

func TestEncode(t *testing.T) {
	hs := HeaderSet{
		{Name: "hx-trigger", Value: "saved"},
		{Name: "HX-Retarget", Value: "#list"},
		{Name: "vary", Value: "HX-Request"},
		{Name: "Vary", Value: "HX-Target"},
	}

	got := ToHTTP(hs)

	if v := got.Get("HX-Trigger"); v != "saved" {
		t.Errorf("HX-Trigger = %q, want %q", v, "saved")
	}
	if v := got.Get("HX-Retarget"); v != "#list" {
		t.Errorf("HX-Retarget = %q, want %q", v, "#list")
	}
	if v := got.Values("Vary"); !reflect.DeepEqual(v, []string{"HX-Request", "HX-Target"}) {
		t.Errorf("Vary = %v, want ordered values", v)
	}
	if _, ok := got["Hx-Trigger"]; !ok {
		t.Error("expected canonical key Hx-Trigger")
	}
}

func TestHeaderSetClone(t *testing.T) {
	hs := HeaderSet{{Name: "A", Value: "1"}}
	c := hs.Clone()
	c[0].Value = "2"
	if hs[0].Value != "1" {
		t.Error("Clone shares backing array")
	}
	if HeaderSet(nil).Clone() != nil {
		t.Error("Clone(nil) != nil")
	}
}
