//go:build tools

package tools

// This file tracks CLI tool dependencies. It is not compiled into any binary.
//
// - github.com/matryer/moq: service consumer-interface mocks (go generate ./...)
// - github.com/pressly/goose/v3/cmd/goose: ad-hoc migration status; keyctl migrate applies them
