package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/lehigh-university-libraries/ocrweb/cmd"
	"github.com/lehigh-university-libraries/ocrweb/internal/utils"
)

func main() {
	if err := utils.LoadDotEnv(); err != nil {
		utils.ExitOnError("Error loading .env file", err)
	}

	if err := fang.Execute(context.Background(), cmd.RootCmd); err != nil {
		os.Exit(1)
	}
}
