//go:build tools

// This file pins development tools in go.sum.
// Install with: go install github.com/golangci/golangci-lint/cmd/golangci-lint
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
)
