package screen

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StreamClient is the display side of the networked channel: it reads the
// terminal's event stream and posts toggles back.
type StreamClient struct {
	baseURL string
	code    string
	http    *http.Client
}

func NewStreamClient(baseURL, code string, httpClient *http.Client) (*StreamClient, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &StreamClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		code:    normalized,
		http:    httpClient,
	}, nil
}

func (c *StreamClient) displayURL(suffix string) string {
	return c.baseURL + "/pos/displays/" + url.PathEscape(c.code) + suffix
}

// Stream delivers each message to handle until the stream ends or ctx is
// cancelled. ErrSessionNotFound is returned for unknown codes.
func (c *StreamClient) Stream(ctx context.Context, handle func(Message)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.displayURL("/events"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("display stream: unexpected status %d", resp.StatusCode)
	}
	return readEvents(resp.Body, handle)
}

// readEvents parses a text/event-stream body. Events other than "message"
// and undecodable payloads are skipped.
func readEvents(r io.Reader, handle func(Message)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	event := ""
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if (event == "" || event == "message") && data.Len() > 0 {
				var msg Message
				if err := json.Unmarshal(data.Bytes(), &msg); err == nil {
					handle(msg)
				}
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

type toggleBody struct {
	OptionID string `json:"optionId"`
	Active   bool   `json:"active"`
}

// SendToggle relays a customer tap to the cashier.
func (c *StreamClient) SendToggle(ctx context.Context, optionID string, active bool) error {
	payload, err := json.Marshal(toggleBody{OptionID: optionID, Active: active})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.displayURL("/toggles"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("display toggle: unexpected status %d", resp.StatusCode)
	}
	return nil
}
