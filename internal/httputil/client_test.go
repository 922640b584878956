package httputil

import (
	"errors"
	"io"
	"net/http"
	"testing"
)

func TestMockHTTPClient_QueuedResponses(t *testing.T) {
	client := NewMockHTTPClient()
	client.AddResponse(200, `{"ok":true}`)
	client.AddResponse(500, `{"error":"boom"}`)

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/a", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || string(body) != `{"ok":true}` {
		t.Errorf("unexpected first response: %d %s", resp.StatusCode, body)
	}

	resp2, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != 500 {
		t.Errorf("expected 500 for second response, got %d", resp2.StatusCode)
	}

	if client.RequestCount() != 2 {
		t.Errorf("expected 2 recorded requests, got %d", client.RequestCount())
	}
}

func TestMockHTTPClient_ErrorResponse(t *testing.T) {
	client := NewMockHTTPClient()
	client.AddErrorResponse(errors.New("connection refused"))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test", nil)
	if _, err := client.Do(req); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestMockHTTPClient_DefaultResponse(t *testing.T) {
	client := NewMockHTTPClient()

	req, _ := http.NewRequest(http.MethodGet, "http://example.test", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected default 200, got %d", resp.StatusCode)
	}
	if client.LastRequest() == nil {
		t.Error("expected request to be recorded")
	}
}

func TestNewStandardClient_NilFallsBack(t *testing.T) {
	c := NewStandardClient(nil)
	if c.Client != http.DefaultClient {
		t.Error("expected nil client to fall back to http.DefaultClient")
	}
}
