package main

import (
	"github.com/accesslint/platform/cmd"
	"github.com/accesslint/platform/internal/config"
)

func main() {
	config.LoadConfig()
	cmd.Execute()
}
