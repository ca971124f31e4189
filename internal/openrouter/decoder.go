// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/jeranaias/relay-tui/internal/model"
)

// STREAMING: chunk-to-delta normalization with partial-line buffering

// =============================================================================
// DELTA
// =============================================================================

// Delta is one normalized unit of streamed response data. Providers encode
// text, reasoning, images, and citations in several payload shapes; the
// decoder folds them all into this one type. A Delta is transient: it is
// consumed by the stream session immediately and never persisted.
type Delta struct {
	Text      string
	Reasoning string
	Images    []model.ImageRef
	Citations []model.Citation
}

// IsEmpty reports whether the delta carries no data at all.
func (d Delta) IsEmpty() bool {
	return d.Text == "" && d.Reasoning == "" && len(d.Images) == 0 && len(d.Citations) == 0
}

// =============================================================================
// WIRE SHAPES
// =============================================================================

// dataPrefix marks an SSE data line; sentinel terminates the stream.
var (
	dataPrefix = []byte("data:")
	sentinel   = []byte("[DONE]")
)

// streamEvent is the wire shape of one "data:" line. Providers put
// incremental payloads under delta and, for some fields, complete payloads
// under message; both positions must be read.
type streamEvent struct {
	Choices []struct {
		Delta        *eventPayload `json:"delta"`
		Message      *eventPayload `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

// eventPayload covers every known placement of streamed content:
//   - content as a plain string or a multimodal part array
//   - reasoning under "reasoning", "reasoning_content", or
//     "reasoning_details" depending on the upstream provider
//   - images as a sibling array or as image_url content parts
//   - citations as url_citation annotations
type eventPayload struct {
	Content          json.RawMessage   `json:"content,omitempty"`
	Reasoning        string            `json:"reasoning,omitempty"`
	ReasoningContent string            `json:"reasoning_content,omitempty"`
	ReasoningDetails []reasoningDetail `json:"reasoning_details,omitempty"`
	Images           []imagePayload    `json:"images,omitempty"`
	Annotations      []annotation      `json:"annotations,omitempty"`
}

type reasoningDetail struct {
	Text string `json:"text,omitempty"`
}

type imagePayload struct {
	Type     string   `json:"type,omitempty"`
	ImageURL URLField `json:"image_url"`
}

type annotation struct {
	Type        string `json:"type"`
	URLCitation struct {
		URL   string `json:"url"`
		Title string `json:"title,omitempty"`
	} `json:"url_citation"`
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns raw body chunks into normalized deltas. Chunk boundaries
// are arbitrary: a chunk may end mid-line, so the trailing partial line is
// buffered and prefixed onto the next call.
//
// Malformed lines are skipped, never fatal; a single bad event must not
// abort an otherwise healthy stream.
type Decoder struct {
	leftover []byte
	done     bool
	logger   *slog.Logger
}

// NewDecoder creates a decoder. A nil logger disables skip logging.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Decoder{logger: logger}
}

// Decode consumes one raw chunk and returns zero or more deltas. Empty
// deltas (keep-alives, role-only events) are dropped.
func (d *Decoder) Decode(chunk []byte) []Delta {
	if d.done || len(chunk) == 0 {
		return nil
	}

	buf := append(d.leftover, chunk...)
	var deltas []Delta

	for {
		nl := bytes.IndexByte(buf, '\n')
		if nl < 0 {
			break
		}
		line := buf[:nl]
		buf = buf[nl+1:]

		delta, ok := d.decodeLine(line)
		if d.done {
			d.leftover = nil
			return deltas
		}
		if ok && !delta.IsEmpty() {
			deltas = append(deltas, delta)
		}
	}

	// Keep a copy: buf aliases the appended slice which is reused next call.
	d.leftover = append([]byte(nil), buf...)
	return deltas
}

// Flush decodes any buffered partial line as if the stream had ended with
// a final newline. Called once at EOF; streams that terminate without the
// sentinel may leave a complete data line unterminated.
func (d *Decoder) Flush() []Delta {
	if d.done || len(d.leftover) == 0 {
		return nil
	}
	line := d.leftover
	d.leftover = nil
	delta, ok := d.decodeLine(line)
	if ok && !delta.IsEmpty() {
		return []Delta{delta}
	}
	return nil
}

// Done reports whether the end-of-stream sentinel was seen.
func (d *Decoder) Done() bool {
	return d.done
}

// decodeLine parses a single physical line. Non-data lines (comments, SSE
// event/id fields, blank separators) are ignored.
func (d *Decoder) decodeLine(line []byte) (Delta, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return Delta{}, false
	}

	data := bytes.TrimSpace(line[len(dataPrefix):])
	if bytes.Equal(data, sentinel) {
		d.done = true
		return Delta{}, false
	}

	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		d.logger.Debug("skipping malformed stream line", "error", err)
		return Delta{}, false
	}
	if len(ev.Choices) == 0 {
		return Delta{}, false
	}

	var delta Delta
	choice := ev.Choices[0]
	// Incremental fields arrive under delta; some providers also attach
	// complete-message fields (notably images) under message. Merge both.
	if choice.Delta != nil {
		mergePayload(&delta, choice.Delta)
	}
	if choice.Message != nil {
		mergePayload(&delta, choice.Message)
	}
	return delta, true
}

// mergePayload folds one payload position into the delta.
func mergePayload(delta *Delta, p *eventPayload) {
	text, images := normalizeContent(p.Content)
	delta.Text += text
	delta.Images = append(delta.Images, images...)

	delta.Reasoning += p.Reasoning
	delta.Reasoning += p.ReasoningContent
	for _, rd := range p.ReasoningDetails {
		delta.Reasoning += rd.Text
	}

	for _, img := range p.Images {
		if img.ImageURL.URL != "" {
			delta.Images = append(delta.Images, model.ImageRef{URL: img.ImageURL.URL})
		}
	}

	for _, a := range p.Annotations {
		if a.Type == "url_citation" && a.URLCitation.URL != "" {
			delta.Citations = append(delta.Citations, model.Citation{
				URL:   a.URLCitation.URL,
				Title: a.URLCitation.Title,
			})
		}
	}
}

// normalizeContent handles content as a bare string or a multimodal part
// array interleaving text and image parts.
func normalizeContent(raw json.RawMessage) (string, []model.ImageRef) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", nil
	}

	var text string
	var images []model.ImageRef
	for _, part := range parts {
		switch part.Type {
		case "text":
			text += part.Text
		case "image_url":
			if part.ImageURL != nil && part.ImageURL.URL != "" {
				images = append(images, model.ImageRef{URL: part.ImageURL.URL})
			}
		}
	}
	return text, images
}
