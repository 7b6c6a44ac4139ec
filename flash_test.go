package hxssr

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func TestFlashLevelConstants(t *testing.T) {
	// Ensure constants have expected values
	if FlashSuccess != "success" {
		t.Errorf("FlashSuccess = %q, want %q", FlashSuccess, "success")
	}
	if FlashError != "error" {
		t.Errorf("FlashError = %q, want %q", FlashError, "error")
	}
	if FlashWarning != "warning" {
		t.Errorf("FlashWarning = %q, want %q", FlashWarning, "warning")
	}
	if FlashInfo != "info" {
		t.Errorf("FlashInfo = %q, want %q", FlashInfo, "info")
	}
}

func TestFlashFragment(t *testing.T) {
	tests := []struct {
		name   string
		flash  Flash
		expect string
	}{
		{
			name:   "plain",
			flash:  Flash{Level: FlashSuccess, Message: "Item saved successfully"},
			expect: `<div class="toast toast-success" data-auto-dismiss="3000">Item saved successfully</div>`,
		},
		{
			name:   "message escaping",
			flash:  Flash{Level: FlashError, Message: "<script>alert('x')</script>"},
			expect: `<div class="toast toast-error" data-auto-dismiss="3000">&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;</div>`,
		},
		{
			name:   "level escaping",
			flash:  Flash{Level: `x" onclick="evil`, Message: "hi"},
			expect: `<div class="toast toast-x&#34; onclick=&#34;evil" data-auto-dismiss="3000">hi</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := flashFragment(tt.flash).Render(context.Background(), &buf); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if buf.String() != tt.expect {
				t.Errorf("got %q, want %q", buf.String(), tt.expect)
			}
		})
	}
}

func TestFlashFragmentWrongModel(t *testing.T) {
	err := flashFragment("not a flash").Render(context.Background(), &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error for a non-Flash model")
	}
}

func TestToastContainer(t *testing.T) {
	var buf bytes.Buffer
	if err := ToastContainer().Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), `id="toasts"`) {
		t.Errorf("missing id=\"toasts\": %q", buf.String())
	}
}

func TestFragmentsRegistry(t *testing.T) {
	frags := NewFragments().Add("greeting", Typed(func(name string) templ.Component {
		return Text("hello " + name)
	}))

	if !frags.Resolve("greeting") {
		t.Error("registered fragment should resolve")
	}
	if frags.Resolve("missing") {
		t.Error("unknown fragment should not resolve")
	}

	ids := frags.IDs()
	if len(ids) != 2 || ids[0] != "greeting" || ids[1] != "hxssr:flash" {
		t.Errorf("IDs() = %v", ids)
	}

	result, err := TestFragment(frags, "greeting", "<ann>")
	if err != nil {
		t.Fatalf("TestFragment() error = %v", err)
	}
	if result.HTML != "hello &lt;ann&gt;" {
		t.Errorf("HTML = %q", result.HTML)
	}

	if _, err := TestFragment(frags, "missing", nil); !IsInvalidFragment(err) {
		t.Errorf("missing fragment error = %v, want invalid fragment", err)
	}
	if _, err := TestFragment(frags, "greeting", 42); !IsRenderFailed(err) {
		t.Errorf("wrong model error = %v, want render failed", err)
	}
}

func TestFragmentsAddPanics(t *testing.T) {
	tests := []struct {
		name string
		add  func(*Fragments)
	}{
		{"empty id", func(f *Fragments) { f.Add("", func(any) templ.Component { return nil }) }},
		{"nil fragment", func(f *Fragments) { f.Add("x", nil) }},
		{"duplicate", func(f *Fragments) {
			fn := func(any) templ.Component { return nil }
			f.Add("x", fn).Add("x", fn)
		}},
		{"flash id taken", func(f *Fragments) { f.Add("hxssr:flash", func(any) templ.Component { return nil }) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.add(NewFragments())
		})
	}
}
