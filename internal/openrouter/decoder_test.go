// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"strings"
	"testing"
)

// collect runs the full stream through the decoder using the given chunk
// sizes, then flushes. A chunk size of 0 means "the whole input at once".
func collect(t *testing.T, input string, chunkSize int) []Delta {
	t.Helper()
	dec := NewDecoder(nil)
	var deltas []Delta

	if chunkSize <= 0 {
		chunkSize = len(input)
	}
	for i := 0; i < len(input); i += chunkSize {
		end := i + chunkSize
		if end > len(input) {
			end = len(input)
		}
		deltas = append(deltas, dec.Decode([]byte(input[i:end]))...)
		if dec.Done() {
			return deltas
		}
	}
	deltas = append(deltas, dec.Flush()...)
	return deltas
}

// joinText concatenates the text of all deltas.
func joinText(deltas []Delta) string {
	var sb strings.Builder
	for _, d := range deltas {
		sb.WriteString(d.Text)
	}
	return sb.String()
}

// =============================================================================
// CHUNK BOUNDARY TESTS
// =============================================================================

// TestDecoder_ChunkingInvariance verifies that the decoded output does not
// depend on how the transport splits the byte stream.
func TestDecoder_ChunkingInvariance(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\", \"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"world!\"}}]}\n" +
		"data: [DONE]\n"

	want := "Hello, world!"

	tests := []struct {
		name      string
		chunkSize int
	}{
		{name: "single chunk", chunkSize: 0},
		{name: "one byte at a time", chunkSize: 1},
		{name: "mid-line splits", chunkSize: 7},
		{name: "mid-line splits prime", chunkSize: 13},
		{name: "large chunks", chunkSize: 4096},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := joinText(collect(t, input, tc.chunkSize))
			if got != want {
				t.Errorf("decoded text = %q, expected %q", got, want)
			}
		})
	}
}

// TestDecoder_PartialLineBuffering verifies a line split across two Decode
// calls produces exactly one delta.
func TestDecoder_PartialLineBuffering(t *testing.T) {
	dec := NewDecoder(nil)

	first := dec.Decode([]byte("data: {\"choices\":[{\"delta\":{\"conte"))
	if len(first) != 0 {
		t.Fatalf("expected no deltas from partial line, got %d", len(first))
	}

	second := dec.Decode([]byte("nt\":\"hi\"}}]}\n"))
	if len(second) != 1 || second[0].Text != "hi" {
		t.Fatalf("expected one delta with text 'hi', got %+v", second)
	}
}

// TestDecoder_FlushUnterminatedLine verifies a final data line without a
// trailing newline is still decoded at EOF.
func TestDecoder_FlushUnterminatedLine(t *testing.T) {
	dec := NewDecoder(nil)
	dec.Decode([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"tail\"}}]}"))

	deltas := dec.Flush()
	if len(deltas) != 1 || deltas[0].Text != "tail" {
		t.Fatalf("expected flushed delta with text 'tail', got %+v", deltas)
	}
}

// =============================================================================
// NORMALIZATION TESTS
// =============================================================================

// TestDecoder_Normalization verifies the provider payload shapes all fold
// into the same Delta fields.
func TestDecoder_Normalization(t *testing.T) {
	tests := []struct {
		name          string
		line          string
		wantText      string
		wantReasoning string
		wantImages    []string
		wantCitations []string
	}{
		{
			name:     "plain content",
			line:     `data: {"choices":[{"delta":{"content":"abc"}}]}`,
			wantText: "abc",
		},
		{
			name:          "reasoning field",
			line:          `data: {"choices":[{"delta":{"reasoning":"think"}}]}`,
			wantReasoning: "think",
		},
		{
			name:          "reasoning_content field",
			line:          `data: {"choices":[{"delta":{"reasoning_content":"deep"}}]}`,
			wantReasoning: "deep",
		},
		{
			name:          "reasoning_details array",
			line:          `data: {"choices":[{"delta":{"reasoning_details":[{"text":"a"},{"text":"b"}]}}]}`,
			wantReasoning: "ab",
		},
		{
			name:       "delta images array",
			line:       `data: {"choices":[{"delta":{"images":[{"type":"image_url","image_url":{"url":"https://img.example/1.png"}}]}}]}`,
			wantImages: []string{"https://img.example/1.png"},
		},
		{
			name:       "message images array",
			line:       `data: {"choices":[{"delta":{},"message":{"images":[{"image_url":{"url":"https://img.example/2.png"}}]}}]}`,
			wantImages: []string{"https://img.example/2.png"},
		},
		{
			name:       "multimodal content parts",
			line:       `data: {"choices":[{"delta":{"content":[{"type":"text","text":"see: "},{"type":"image_url","image_url":{"url":"https://img.example/3.png"}}]}}]}`,
			wantText:   "see: ",
			wantImages: []string{"https://img.example/3.png"},
		},
		{
			name:          "url citation annotation",
			line:          `data: {"choices":[{"delta":{"annotations":[{"type":"url_citation","url_citation":{"url":"https://src.example/a","title":"Source A"}}]}}]}`,
			wantCitations: []string{"https://src.example/a"},
		},
		{
			name: "non-citation annotation ignored",
			line: `data: {"choices":[{"delta":{"annotations":[{"type":"file","url_citation":{"url":""}}]}}]}`,
		},
		{
			name:     "null content",
			line:     `data: {"choices":[{"delta":{"content":null,"reasoning":""}}]}`,
			wantText: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deltas := collect(t, tc.line+"\n", 0)

			var text, reasoning string
			var images, citations []string
			for _, d := range deltas {
				text += d.Text
				reasoning += d.Reasoning
				for _, img := range d.Images {
					images = append(images, img.URL)
				}
				for _, c := range d.Citations {
					citations = append(citations, c.URL)
				}
			}

			if text != tc.wantText {
				t.Errorf("text = %q, expected %q", text, tc.wantText)
			}
			if reasoning != tc.wantReasoning {
				t.Errorf("reasoning = %q, expected %q", reasoning, tc.wantReasoning)
			}
			if len(images) != len(tc.wantImages) {
				t.Fatalf("images = %v, expected %v", images, tc.wantImages)
			}
			for i := range images {
				if images[i] != tc.wantImages[i] {
					t.Errorf("image[%d] = %q, expected %q", i, images[i], tc.wantImages[i])
				}
			}
			if len(citations) != len(tc.wantCitations) {
				t.Fatalf("citations = %v, expected %v", citations, tc.wantCitations)
			}
			for i := range citations {
				if citations[i] != tc.wantCitations[i] {
					t.Errorf("citation[%d] = %q, expected %q", i, citations[i], tc.wantCitations[i])
				}
			}
		})
	}
}

// =============================================================================
// ROBUSTNESS TESTS
// =============================================================================

// TestDecoder_MalformedLinesSkipped verifies bad JSON does not abort the
// stream or corrupt surrounding deltas.
func TestDecoder_MalformedLinesSkipped(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"ok1\"}}]}\n" +
		"data: {not valid json at all\n" +
		": comment line\n" +
		"event: ping\n" +
		"\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok2\"}}]}\n" +
		"data: [DONE]\n"

	got := joinText(collect(t, input, 0))
	if got != "ok1ok2" {
		t.Errorf("decoded text = %q, expected 'ok1ok2'", got)
	}
}

// TestDecoder_SentinelStopsDecoding verifies nothing after [DONE] is
// decoded, even in the same chunk.
func TestDecoder_SentinelStopsDecoding(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"before\"}}]}\n" +
		"data: [DONE]\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n"

	dec := NewDecoder(nil)
	deltas := dec.Decode([]byte(input))

	if got := joinText(deltas); got != "before" {
		t.Errorf("decoded text = %q, expected 'before'", got)
	}
	if !dec.Done() {
		t.Error("Done() should be true after sentinel")
	}
	if extra := dec.Decode([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"more\"}}]}\n")); len(extra) != 0 {
		t.Errorf("decoder produced %d deltas after sentinel", len(extra))
	}
}

// TestDecoder_CRLFLines verifies carriage returns are tolerated.
func TestDecoder_CRLFLines(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"crlf\"}}]}\r\n" +
		"data: [DONE]\r\n"

	got := joinText(collect(t, input, 0))
	if got != "crlf" {
		t.Errorf("decoded text = %q, expected 'crlf'", got)
	}
}

// TestDecoder_EmptyDeltasDropped verifies keep-alive and role-only events
// produce no deltas.
func TestDecoder_EmptyDeltasDropped(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{}}]}\n" +
		"data: {\"choices\":[]}\n" +
		"data: [DONE]\n"

	deltas := collect(t, input, 0)
	if len(deltas) != 0 {
		t.Errorf("expected no deltas, got %d: %+v", len(deltas), deltas)
	}
}

// TestDelta_IsEmpty verifies the emptiness check covers every field.
func TestDelta_IsEmpty(t *testing.T) {
	if !(Delta{}).IsEmpty() {
		t.Error("zero Delta should be empty")
	}
	if (Delta{Text: "x"}).IsEmpty() {
		t.Error("Delta with text should not be empty")
	}
	if (Delta{Reasoning: "x"}).IsEmpty() {
		t.Error("Delta with reasoning should not be empty")
	}
}
