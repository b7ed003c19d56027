//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/castpost/castpost/internal/core"
	"github.com/castpost/castpost/internal/outputs/email"
	"github.com/castpost/castpost/internal/outputs/email/smtp"
)

// Exercises the delivery leg against a real SMTP server: builds both
// message variants and verifies subject, body and attachment through
// the mailpit API. The listing and download legs need live YouTube and
// a yt-dlp binary, so they stay out of this test.
func TestMailpitDelivery(t *testing.T) {
	if os.Getenv("CASTPOST_E2E") == "" {
		t.Skip("set CASTPOST_E2E=1 to enable e2e tests")
	}

	repoRoot, err := findRepoRoot()
	if err != nil {
		t.Fatalf("find repo root: %v", err)
	}

	composeFile := getenv("MAILPIT_COMPOSE_FILE", filepath.Join(repoRoot, "docker-compose.yml"))
	apiBase := strings.TrimRight(getenv("MAILPIT_API_BASE", "http://localhost:8025"), "/")

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := dockerCompose(ctx, repoRoot, composeFile, "up", "-d"); err != nil {
		t.Fatalf("docker compose up: %v", err)
	}
	if os.Getenv("MAILPIT_KEEP_RUNNING") == "" {
		t.Cleanup(func() {
			_ = dockerCompose(context.Background(), repoRoot, composeFile, "down")
		})
	}

	waitForHTTP200(t, ctx, apiBase+"/api/v1/messages")
	_ = httpDo(ctx, http.MethodDelete, apiBase+"/api/v1/messages", nil)

	runID := fmt.Sprintf("%d-%d", time.Now().Unix(), rand.IntN(1_000_000))
	channel := core.Channel{Handle: "UCe2e", Name: "Mailpit E2E"}

	artifact := filepath.Join(t.TempDir(), "episode.mp3")
	if err := os.WriteFile(artifact, bytes.Repeat([]byte{0xFF}, 2048), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	sender := smtp.NewSender("localhost", 1025, "", "", "disabled", false)

	t.Run("attachment", func(t *testing.T) {
		item := core.Item{ID: "e2e-attach-" + runID, Title: "Attached Episode " + runID}
		msg, err := email.BuildMessage("dev@example.com", "castpost@example.com", channel, item, artifact, "")
		if err != nil {
			t.Fatalf("build message: %v", err)
		}
		if err := sender.Send(ctx, msg); err != nil {
			t.Fatalf("send: %v", err)
		}

		got := fetchMessage(t, ctx, apiBase, item.Title)
		if !strings.Contains(got.Subject, "[castpost]") {
			t.Fatalf("unexpected subject: %q", got.Subject)
		}
		if got.Attachments != 1 {
			t.Fatalf("expected 1 attachment, got %d", got.Attachments)
		}
	})

	t.Run("overflow link", func(t *testing.T) {
		item := core.Item{ID: "e2e-link-" + runID, Title: "Linked Episode " + runID}
		link := "https://drive.google.com/file/d/e2e/view?usp=sharing"
		msg, err := email.BuildMessage("dev@example.com", "castpost@example.com", channel, item, artifact, link)
		if err != nil {
			t.Fatalf("build message: %v", err)
		}
		if err := sender.Send(ctx, msg); err != nil {
			t.Fatalf("send: %v", err)
		}

		got := fetchMessage(t, ctx, apiBase, item.Title)
		if got.Attachments != 0 {
			t.Fatalf("overflow delivery must not carry an attachment, got %d", got.Attachments)
		}
		body := firstNonEmpty(got.HTML, got.Text, got.Body)
		if !strings.Contains(body, link) {
			t.Fatalf("share link not found in message body")
		}
	})
}

type mailpitMessagesResponse struct {
	Messages []mailpitMessageSummary `json:"messages"`
}

type mailpitMessageSummary struct {
	ID          string `json:"ID"`
	Subject     string `json:"Subject"`
	Attachments int    `json:"Attachments"`
}

type mailpitMessage struct {
	Subject     string `json:"Subject"`
	HTML        string `json:"HTML"`
	Text        string `json:"Text"`
	Body        string `json:"Body"`
	Attachments int
}

func fetchMessage(t *testing.T, ctx context.Context, apiBase string, subjectNeedle string) mailpitMessage {
	t.Helper()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		raw := mustHTTPGet(t, ctx, apiBase+"/api/v1/messages")
		var res mailpitMessagesResponse
		_ = json.Unmarshal(raw, &res)
		for _, m := range res.Messages {
			if strings.Contains(m.Subject, subjectNeedle) && m.ID != "" {
				raw := mustHTTPGet(t, ctx, apiBase+"/api/v1/message/"+m.ID)
				var msg mailpitMessage
				if err := json.Unmarshal(raw, &msg); err != nil {
					t.Fatalf("parse message json: %v\n%s", err, raw)
				}
				msg.Attachments = m.Attachments
				return msg
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for mailpit message with subject %q", subjectNeedle)
	return mailpitMessage{}
}

func dockerCompose(ctx context.Context, repoRoot string, composeFile string, args ...string) error {
	all := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", all...)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %w\n%s", cmd.Args, err, out)
	}
	return nil
}

func waitForHTTP200(t *testing.T, ctx context.Context, url string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil && resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", url)
}

func mustHTTPGet(t *testing.T, ctx context.Context, url string) []byte {
	t.Helper()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.Fatalf("GET %s: status=%d body=%s", url, resp.StatusCode, body)
	}
	return body
}

func httpDo(ctx context.Context, method string, url string, body []byte) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, _ := http.NewRequestWithContext(ctx, method, url, r)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status=%d", method, url, resp.StatusCode)
	}
	return nil
}

func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		next := filepath.Dir(dir)
		if next == dir {
			break
		}
		dir = next
	}
	return "", errors.New("go.mod not found in parent directories")
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
