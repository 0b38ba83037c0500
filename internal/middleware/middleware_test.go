package middleware

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"reservation-booking-api/internal/auth"
)

const secret = "test-secret"

func token(t *testing.T, uid string) string {
	t.Helper()
	tok, err := auth.MakeToken(uid, auth.DefaultAbilities, secret, time.Minute)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func TestBearer(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc ": "abc",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
	}
	for in, want := range tests {
		if got := bearer(in); got != want {
			t.Errorf("bearer(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestAuthInterceptor(t *testing.T) {
	icpt := Auth(secret, "/svc/Open")
	var seen string
	next := func(ctx context.Context, req any) (any, error) {
		seen = UserID(ctx)
		return "ok", nil
	}

	tests := []struct {
		name   string
		method string
		md     metadata.MD
		code   codes.Code
		uid    string
	}{
		{"open method", "/svc/Open", nil, codes.OK, ""},
		{"no metadata", "/svc/Closed", nil, codes.Unauthenticated, ""},
		{"no token", "/svc/Closed", metadata.Pairs("x", "y"), codes.Unauthenticated, ""},
		{"bad token", "/svc/Closed", metadata.Pairs("authorization", "Bearer junk"), codes.Unauthenticated, ""},
		{"valid", "/svc/Closed", metadata.Pairs("authorization", "Bearer "+token(t, "u1")), codes.OK, "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}
			_, err := icpt(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, next)
			if status.Code(err) != tt.code {
				t.Fatalf("expected %v, got %v", tt.code, err)
			}
			if seen != tt.uid {
				t.Errorf("expected uid %q, got %q", tt.uid, seen)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := ClaimsFrom(r.Context())
		w.Write([]byte(c.UserID))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Body.String() != "{\"message\":\"Unauthenticated.\"}\n" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "u2"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "u2" {
		t.Errorf("expected 200 u2, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRateLimitInterceptor(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	icpt := RateLimit(rl, "/svc/Login")
	next := func(ctx context.Context, req any) (any, error) { return nil, nil }

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 1234}})
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Login"}

	for i := 0; i < 2; i++ {
		if _, err := icpt(ctx, nil, info, next); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	// a new connection from the same host shares the bucket
	ctx2 := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 9999}})
	if _, err := icpt(ctx2, nil, info, next); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}

	// other methods are not limited
	if _, err := icpt(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Other"}, next); err != nil {
		t.Errorf("unlimited method: %v", err)
	}
}

func TestLimitHTTP(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := LimitHTTP(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("POST", "/api/login", nil)
	req.RemoteAddr = "192.0.2.1:1000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: expected 429, got %d", rec.Code)
	}

	other := httptest.NewRequest("POST", "/api/login", nil)
	other.RemoteAddr = "192.0.2.2:1000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", rec.Code)
	}
}

func TestSweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("a")
	rl.sweep(-time.Second)
	rl.mu.Lock()
	n := len(rl.clients)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("expected idle clients dropped, %d left", n)
	}
}
