// Package main provides a CI-friendly smoke test for the auth API.
//
// It validates:
//   - register returns a session
//   - /me accepts the access token
//   - refresh rotates the refresh token
//   - the superseded refresh token is rejected on replay
//   - logout revokes the current refresh token and is idempotent
//   - duplicate registration is refused
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"projectmanager/cmd/internal/client"
	authv1 "projectmanager/shared/contracts/auth/v1"

	"github.com/oklog/ulid/v2"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "API base URL")
		password = flag.String("password", "smoke-secret-1", "password for the throwaway account")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	step := func(name string) (context.Context, context.CancelFunc) {
		if *verbose {
			fmt.Printf("-> %s\n", name)
		}
		return context.WithTimeout(context.Background(), *timeout)
	}

	c, err := client.New(client.Config{BaseURL: *baseURL, RefreshTimeout: *timeout}, client.NewMemoryStore())
	if err != nil {
		fatalf("client: %v", err)
	}
	email := "smoke-" + strings.ToLower(ulid.Make().String()) + "@example.com"

	ctx, cancel := step("register")
	reg, err := c.Register(ctx, email, *password)
	cancel()
	if err != nil {
		fatalf("register: %v", err)
	}
	if reg.RefreshToken == "" {
		fatalf("register: no refresh token in body; run the server with PM_AUTH_REFRESH_TRANSPORT=body")
	}

	ctx, cancel = step("me")
	me, err := c.Me(ctx)
	cancel()
	if err != nil {
		fatalf("me: %v", err)
	}
	if me.UserID != reg.UserID {
		fatalf("me: user mismatch: got=%q want=%q", me.UserID, reg.UserID)
	}

	ctx, cancel = step("refresh")
	rotated, err := c.Refresh(ctx)
	cancel()
	if err != nil {
		fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == reg.RefreshToken {
		fatalf("refresh: token was not rotated")
	}

	ctx, cancel = step("replay superseded refresh token")
	status := postRefresh(ctx, *baseURL, reg.RefreshToken)
	cancel()
	if status != http.StatusUnauthorized {
		fatalf("replay: expected 401, got %d", status)
	}

	ctx, cancel = step("duplicate register")
	_, err = c.Register(ctx, email, *password)
	cancel()
	if !errors.Is(err, client.ErrConflict) {
		fatalf("duplicate register: expected conflict, got %v", err)
	}

	ctx, cancel = step("logout")
	current, _, _ := c.Session()
	err = c.Logout(ctx)
	cancel()
	if err != nil {
		fatalf("logout: %v", err)
	}

	ctx, cancel = step("refresh after logout")
	status = postRefresh(ctx, *baseURL, current.RefreshToken)
	cancel()
	if status != http.StatusUnauthorized {
		fatalf("refresh after logout: expected 401, got %d", status)
	}

	fmt.Println("OK: auth smoke passed")
}

func postRefresh(ctx context.Context, baseURL, token string) int {
	body, _ := json.Marshal(authv1.RefreshRequest{RefreshToken: token})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+authv1.PathRefresh, bytes.NewReader(body))
	if err != nil {
		fatalf("build refresh request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("refresh request: %v", err)
	}
	_ = res.Body.Close()
	return res.StatusCode
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
