package hxssr

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pthm/hxssr/lib/reload"
	"github.com/pthm/hxssr/lib/supervisor"
)

func TestOptionsFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{"unset", "", "", false},
		{"whitespace counts as unset", "   ", "", false},
		{"valid", "https://example.com/app", "https://example.com/app", false},
		{"no scheme", "example.com", "", true},
		{"unparseable", "http://[::1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvBaseURL, tt.value)

			opts, err := OptionsFromEnv(nil)
			if tt.wantErr {
				var oe *OptionsError
				if !errors.As(err, &oe) {
					t.Fatalf("error = %v, want *OptionsError", err)
				}
				if oe.Var != EnvBaseURL || oe.Value != tt.value {
					t.Errorf("OptionsError = %+v", oe)
				}
				return
			}
			if err != nil {
				t.Fatalf("OptionsFromEnv() error = %v", err)
			}
			got := ""
			if opts.BaseURL != nil {
				got = opts.BaseURL.String()
			}
			if got != tt.want {
				t.Errorf("BaseURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBaseURLFromAddr(t *testing.T) {
	tests := []struct {
		name string
		addr net.Addr
		want string
	}{
		{"loopback", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 3000}, "http://127.0.0.1:3000"},
		{"unspecified v4", &net.TCPAddr{IP: net.IPv4zero, Port: 3000}, "http://localhost:3000"},
		{"unspecified v6", &net.TCPAddr{IP: net.IPv6unspecified, Port: 8080}, "http://localhost:8080"},
		{"nil ip", &net.TCPAddr{Port: 80}, "http://localhost:80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BaseURLFromAddr(tt.addr).String(); got != tt.want {
				t.Errorf("BaseURLFromAddr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBanner(t *testing.T) {
	got := Banner(&net.TCPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 3000})
	if len(got) != 1 || got[0] != "http://10.0.0.2:3000" {
		t.Errorf("Banner() = %v", got)
	}

	got = Banner(&net.TCPAddr{IP: net.IPv4zero, Port: 3000})
	if len(got) == 0 || got[0] != "http://localhost:3000" {
		t.Fatalf("Banner() = %v, want localhost first", got)
	}
	for _, u := range got {
		if !strings.HasSuffix(u, ":3000") {
			t.Errorf("Banner() entry %q has the wrong port", u)
		}
	}
}

func TestServerServesUntilShutdown(t *testing.T) {
	handle, err := supervisor.Listen(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := StateFrom(r.Context())
		if st == nil {
			http.Error(w, "no state", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, st.BaseURL.String())
	})

	done := make(chan struct{})
	srv := NewServer(handle, handler).
		WithGracefulShutdown(done).
		WithSupervisor(supervisor.Config{Channel: reload.NewChannel(), Grace: time.Second})

	if srv.Supervisor() == nil {
		t.Fatal("Supervisor() should be available before Serve")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background()) }()

	url := "http://" + handle.Addr().String() + "/"
	var body string
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			body = string(b)
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if body != url[:len(url)-1] {
		t.Errorf("base URL = %q, want %q", body, url[:len(url)-1])
	}

	close(done)
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
	if got := srv.Supervisor().State(); got != supervisor.Stopped {
		t.Errorf("state = %v, want stopped", got)
	}
}

func TestServerUsesConfiguredBaseURL(t *testing.T) {
	handle, err := supervisor.Listen(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer handle.Close()

	base, _ := ParseBaseURL("https://proxy.example.com")
	srv := NewServer(handle, http.NotFoundHandler()).WithOptions(Options{BaseURL: base})

	if got := srv.State().BaseURL.String(); got != "https://proxy.example.com" {
		t.Errorf("BaseURL = %q", got)
	}
}
