package player

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/reel/internal/domain"
)

func TestEngine_CreateValidatesPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.m3u8":
			w.Write([]byte("#EXTM3U\n#EXT-X-VERSION:3\n#EXTINF:5.0,\nseg0.ts\n"))
		case "/html.m3u8":
			w.Write([]byte("<html>not found</html>"))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer srv.Close()

	eng := NewEngine(srv.Client(), NewLauncher("", nil, nil), nil)

	h, err := eng.Create(context.Background(), srv.URL+"/ok.m3u8")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := h.(*Handle); !ok {
		t.Fatalf("handle type %T", h)
	}

	tests := []struct {
		name string
		uri  string
		want error
	}{
		{"not a playlist", srv.URL + "/html.m3u8", domain.ErrDecode},
		{"http status", srv.URL + "/missing.m3u8", domain.ErrNetwork},
		{"relative uri", "video/1/hls/playlist.m3u8", domain.ErrInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Create(context.Background(), tt.uri)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEngine_CreateHonoursCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := NewEngine(srv.Client(), NewLauncher("", nil, nil), nil)
	if _, err := eng.Create(ctx, srv.URL+"/x.m3u8"); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestHandle_DisposedHandleRefusesPlay(t *testing.T) {
	h := &Handle{uri: "http://x/p.m3u8", launcher: NewLauncher("", nil, nil)}
	if err := h.Dispose(); err != nil {
		t.Fatalf("Dispose unstarted: %v", err)
	}
	if err := h.Dispose(); err != nil {
		t.Fatalf("second Dispose: %v", err)
	}
	if err := h.Play(); !errors.Is(err, ErrHandleDisposed) {
		t.Fatalf("Play after dispose = %v", err)
	}
	if err := h.Pause(); err != nil {
		t.Fatalf("Pause after dispose = %v", err)
	}
}
