// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and
// messages, including the streamed sidecar data an assistant message can
// carry: a reasoning trace, generated images, and web citations.
package model
