package analysis

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kdimtricp/deepguard/internal/apperrors"
)

type funcMessenger func(ctx context.Context, req MessageRequest, callback func(MessageResponse, error))

func (f funcMessenger) SendMessage(ctx context.Context, req MessageRequest, callback func(MessageResponse, error)) {
	f(ctx, req, callback)
}

func TestMessagingBuildsRequest(t *testing.T) {
	var got MessageRequest
	m := funcMessenger(func(_ context.Context, req MessageRequest, cb func(MessageResponse, error)) {
		got = req
		go cb(MessageResponse{IsDeepfake: true, Confidence: 87.5}, nil)
	})

	client, err := NewMessaging(m)
	if err != nil {
		t.Fatalf("NewMessaging: %v", err)
	}
	res, err := client.Analyze(context.Background(), newTestAsset(t, "face.png", "image/png", []byte("hi")))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.IsSynthetic || res.Confidence != 87.5 || res.Regions != nil {
		t.Fatalf("result = %+v", res)
	}
	if got.Action != ActionAnalyzeMedia || got.Filename != "face.png" || got.Type != "image/png" {
		t.Fatalf("request = %+v", got)
	}
	if got.File != "data:image/png;base64,aGk=" {
		t.Fatalf("file = %q", got.File)
	}
}

var errMessengerDown = errors.New("Could not establish connection.")

func TestMessagingChannelError(t *testing.T) {
	m := funcMessenger(func(_ context.Context, _ MessageRequest, cb func(MessageResponse, error)) {
		cb(MessageResponse{}, errMessengerDown)
	})
	client, _ := NewMessaging(m)

	_, err := client.Analyze(context.Background(), newTestAsset(t, "a.png", "image/png", []byte("x")))
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if strings.Contains(err.Error(), "Could not establish connection") {
		t.Fatalf("messenger error text reached the user: %q", err.Error())
	}
	if !errors.Is(err, errMessengerDown) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestMessagingPortClosedKeepsMessage(t *testing.T) {
	m := funcMessenger(func(_ context.Context, _ MessageRequest, cb func(MessageResponse, error)) {
		cb(MessageResponse{}, ErrPortClosed)
	})
	client, _ := NewMessaging(m)

	_, err := client.Analyze(context.Background(), newTestAsset(t, "a.png", "image/png", []byte("x")))
	want := "Error communicating with the extension: " + ErrPortClosed.Error()
	if err == nil || err.Error() != want {
		t.Fatalf("err = %v, want %q", err, want)
	}
	if !errors.Is(err, ErrPortClosed) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestMessagingContextDone(t *testing.T) {
	m := funcMessenger(func(context.Context, MessageRequest, func(MessageResponse, error)) {})
	client, _ := NewMessaging(m)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := client.Analyze(ctx, newTestAsset(t, "a.png", "image/png", []byte("x")))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNewMessagingRequiresMessenger(t *testing.T) {
	if _, err := NewMessaging(nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	data := []byte{0, 1, 2, 250, 251}
	ct, got, err := DecodeDataURL(EncodeDataURL("video/webm", data))
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if ct != "video/webm" || string(got) != string(data) {
		t.Fatalf("decoded %q %v", ct, got)
	}

	for _, bad := range []string{"", "image/png;base64,AA", "data:image/png,AA", "data:image/png;base64", "data:image/png;base64,%%%"} {
		if _, _, err := DecodeDataURL(bad); err == nil {
			t.Errorf("DecodeDataURL(%q) accepted invalid input", bad)
		}
	}
}

func TestBackgroundAnalyzeMedia(t *testing.T) {
	sim := NewSimulated(0)
	sim.Float64 = sequence(0.7, 0.42)

	bg := NewBackground()
	bg.Handle(ActionAnalyzeMedia, AnalyzeMediaHandler(sim))

	client, _ := NewMessaging(bg)
	res, err := client.Analyze(context.Background(), newTestAsset(t, "face.png", "image/png", []byte("x")))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.IsSynthetic || res.Confidence != 42 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Regions) != 0 {
		t.Fatalf("background responses carry no regions, got %v", res.Regions)
	}
	bg.Wait()
}

func TestBackgroundPortClosed(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		handler Handler
	}{
		{
			name:   "unknown action",
			action: "somethingElse",
		},
		{
			name:   "sync handler never responds",
			action: ActionAnalyzeMedia,
			handler: func(context.Context, MessageRequest, func(MessageResponse)) bool {
				return false
			},
		},
		{
			name:   "rejected payload",
			action: ActionAnalyzeMedia,
			handler: AnalyzeMediaHandler(NewSimulated(0)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bg := NewBackground()
			if tt.handler != nil {
				bg.Handle(ActionAnalyzeMedia, tt.handler)
			}

			done := make(chan error, 1)
			bg.SendMessage(context.Background(), MessageRequest{Action: tt.action, File: "garbage"}, func(_ MessageResponse, err error) {
				done <- err
			})

			select {
			case err := <-done:
				if !errors.Is(err, ErrPortClosed) {
					t.Fatalf("err = %v, want ErrPortClosed", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("callback never invoked")
			}
			bg.Wait()
		})
	}
}

func TestBackgroundSyncResponseAndSingleCallback(t *testing.T) {
	bg := NewBackground()
	bg.Handle("ping", func(_ context.Context, _ MessageRequest, respond func(MessageResponse)) bool {
		respond(MessageResponse{Confidence: 1})
		respond(MessageResponse{Confidence: 2})
		return false
	})

	var calls atomic.Int32
	done := make(chan MessageResponse, 2)
	bg.SendMessage(context.Background(), MessageRequest{Action: "ping"}, func(resp MessageResponse, err error) {
		calls.Add(1)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- resp
	})
	bg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("callback invoked %d times, want 1", calls.Load())
	}
	if resp := <-done; resp.Confidence != 1 {
		t.Fatalf("resp = %+v, want first response", resp)
	}
}

func TestBackgroundAsyncCancelled(t *testing.T) {
	bg := NewBackground()
	bg.Handle(ActionAnalyzeMedia, AnalyzeMediaHandler(NewSimulated(time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	bg.SendMessage(ctx, MessageRequest{Action: ActionAnalyzeMedia, File: EncodeDataURL("image/png", []byte("x"))},
		func(_ MessageResponse, err error) { done <- err })
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never invoked")
	}
	bg.Wait()
}
