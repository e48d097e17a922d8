// Package main is the entry point for the propensity CLI.
package main

import (
	"github.com/huangsam/propensity/cmd"
	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/iocache"
)

func main() {
	defer iocache.CloseStores()
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	if err != nil {
		iocache.CloseStores()
		contract.LogFatal("Command failed", err)
	}
}
