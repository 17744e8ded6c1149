// Package main provides a CI-friendly HTTP smoke test for the invitee API.
//
// It validates:
//   - /healthz and /readyz
//   - bearer auth rejection without a token
//   - GET /self/invitations for the given user
//   - optionally POST /self/join/{group} followed by a second join returning 404
//
// The token is minted locally from PACKS_TOKEN_HMAC_KEY.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"packs/cmd/security/token"

	"github.com/google/uuid"
)

const maxReadBytes = 1 << 20 // 1MiB

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		user    = flag.String("user", "", "User uuid to authenticate as (required)")
		group   = flag.String("join", "", "Group to accept an invitation for (optional)")
		issuer  = flag.String("iss", os.Getenv("PACKS_TOKEN_ISSUER"), "Token issuer")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateHTTPURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	userID, err := uuid.Parse(strings.TrimSpace(*user))
	if err != nil {
		fatalf("invalid -user: %v", err)
	}

	key, err := token.HMACKeyFromEnv(token.MinKeyBytes)
	if err != nil {
		fatalf("token key: %v", err)
	}
	signer, err := token.NewSigner(key, *issuer)
	if err != nil {
		fatalf("signer: %v", err)
	}
	bearer, err := signer.Sign(userID, 5*time.Minute)
	if err != nil {
		fatalf("sign: %v", err)
	}

	root := context.Background()
	base := strings.TrimRight(*baseURL, "/")

	mustStatus(root, http.MethodGet, base+"/healthz", "", http.StatusOK, *timeout)
	mustStatus(root, http.MethodGet, base+"/readyz", "", http.StatusOK, *timeout)
	mustStatus(root, http.MethodGet, base+"/self/invitations", "", http.StatusUnauthorized, *timeout)

	body := mustStatus(root, http.MethodGet, base+"/self/invitations", bearer, http.StatusOK, *timeout)
	var listed struct {
		Invitations []struct {
			GroupName string `json:"group_name"`
		} `json:"invitations"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		fatalf("decode invitations: %v", err)
	}
	if *verbose {
		fmt.Printf("invitations: %d\n", len(listed.Invitations))
	}

	if g := strings.TrimSpace(*group); g != "" {
		joinURL := base + "/self/join/" + url.PathEscape(g)
		mustStatus(root, http.MethodPost, joinURL, bearer, http.StatusOK, *timeout)
		mustStatus(root, http.MethodPost, joinURL, bearer, http.StatusNotFound, *timeout)
		if *verbose {
			fmt.Printf("joined: %s\n", g)
		}
	}

	fmt.Printf("OK: user=%s invitations=%d\n", userID, len(listed.Invitations))
}

func validateHTTPURL(raw string) error {
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

func mustStatus(parent context.Context, method, target, bearer string, want int, stepTimeout time.Duration) []byte {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		fatalf("%s %s: read body: %v", method, target, err)
	}
	if resp.StatusCode != want {
		fatalf("%s %s: status=%d want=%d body=%s", method, target, resp.StatusCode, want, strings.TrimSpace(string(body)))
	}
	return body
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
