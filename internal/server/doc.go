// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes content creation over HTTP for editors that embed
// the dialog in a browser.
//
// # Endpoints
//
//   - POST   /api/create             - generate text, or register a stream
//   - GET    /api/stream?streamid=   - server-sent events of a registered stream
//   - GET    /api/approximated/*     - approximate markdown of a content path
//   - GET    /api/history?path=&property=
//   - DELETE /api/history?path=&property=
//   - GET    /api/prompts            - predefined prompts and text lengths
//   - GET    /health
//
// Successful responses wrap their payload as {"data":{"result":...}}.
// Errors are {"error":{"message":...,"type":...,"code":...}}.
//
// # Usage
//
//	srv := server.New(server.Config{Addr: "127.0.0.1:8787"}, service, store)
//	if err := srv.ListenAndServe(); err != nil {
//		log.Fatal(err)
//	}
package server
