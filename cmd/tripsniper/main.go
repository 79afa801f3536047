// Package main - tripsniper CLI
// 통합 CLI 진입점
//
// 사용법:
//
//	go run ./cmd/tripsniper run
//	go run ./cmd/tripsniper schedule
//	go run ./cmd/tripsniper serve
package main

import (
	"os"

	"github.com/wonny/tripsniper/cmd/tripsniper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
