// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openrouter implements the client for an OpenRouter-style LLM
// aggregation API: the chat completion transport, the streaming chunk
// decoder that normalizes heterogeneous provider payloads into deltas,
// the model catalog, and best-effort title generation.
package openrouter
