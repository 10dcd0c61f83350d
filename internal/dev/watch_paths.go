package dev

import (
	"path/filepath"

	"github.com/vango-dev/squid/internal/config"
)

const configFileName = config.ConfigFileName

// CollectWatchPaths returns the directories and files the dev loop watches:
// pages, lambda and static sources plus the config file. The output
// directory is never included.
func CollectWatchPaths(cfg *config.Config) []string {
	paths := []string{
		cfg.PagesPath(),
		cfg.LambdaPath(),
		cfg.StaticPath(),
		cfg.Path(),
	}

	out := filepath.Clean(cfg.OutputPath())
	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if clean == out {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}
	return unique
}
