// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// STREAMING: cancellable chat completion with per-delta callback

// DeltaFunc receives each normalized delta in arrival order. It is called
// from the goroutine driving the stream; it must not block for long.
type DeltaFunc func(Delta)

// ChatStream performs a streaming chat completion, invoking fn for every
// decoded delta until the stream ends, errors, or ctx is cancelled.
//
// Deltas are delivered strictly in arrival order regardless of how the
// transport chunks the body; the decoder buffers partial lines across
// chunk boundaries.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, fn DeltaFunc) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	req.Stream = true
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		// Distinguish user cancellation from a transport failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return c.handleErrorResponse(resp.StatusCode, body)
	}

	return c.pump(ctx, resp.Body, fn)
}

// pump reads raw chunks off the body and feeds them through the decoder.
// Reads are deliberately chunk-sized, not line-sized: chunk boundaries are
// the transport's business and the decoder owns line reassembly.
func (c *Client) pump(ctx context.Context, body io.Reader, fn DeltaFunc) error {
	dec := NewDecoder(c.logger)
	buf := make([]byte, 16*1024)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, delta := range dec.Decode(buf[:n]) {
				fn(delta)
			}
			if dec.Done() {
				return nil
			}
		}

		if readErr == io.EOF {
			for _, delta := range dec.Flush() {
				fn(delta)
			}
			return nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream read failed: %w", readErr)
		}
	}
}
