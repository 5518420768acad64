package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oriys/mqi/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// profile is one named connection preset from ~/.mqictl/profiles.yaml, a
// human-edited YAML file kept separate from the library's own JSON
// config.Config file (SPEC_FULL.md §10.2/§11): profiles are meant to be
// hand-written and diffed, where config.Config's JSON is meant to be
// machine-generated and loaded by an embedding host.
type profile struct {
	ExecutablePath string `yaml:"executable_path"`
	Port           int    `yaml:"port"`
	UseUnixSocket  bool   `yaml:"use_unix_socket"`
	UnixSocketPath string `yaml:"unix_socket_path"`
	Password       string `yaml:"password"`
}

type profileFile struct {
	Profiles map[string]profile `yaml:"profiles"`
}

func profilesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mqictl", "profiles.yaml"), nil
}

func loadProfile(name string) (*profile, error) {
	path, err := profilesPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profiles %s: %w", path, err)
	}
	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	p, ok := pf.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("no profile named %q in %s", name, path)
	}
	return &p, nil
}

// applyTo overlays a profile's fields onto cfg.Engine, the same direction
// daemonCmd applies cobra flag overrides onto a loaded config.Config.
func (p *profile) applyTo(cfg *config.Config) {
	if p.ExecutablePath != "" {
		cfg.Engine.ExecutablePath = p.ExecutablePath
	}
	if p.Port != 0 {
		cfg.Engine.Port = p.Port
	}
	if p.UseUnixSocket {
		cfg.Engine.UseUnixSocket = true
	}
	if p.UnixSocketPath != "" {
		cfg.Engine.UnixSocketPath = p.UnixSocketPath
	}
	if p.Password != "" {
		cfg.Engine.Password = p.Password
	}
}

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List named connection profiles from ~/.mqictl/profiles.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := profilesPath()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("no profiles file at %s\n", path)
				return nil
			}
			var pf profileFile
			if err := yaml.Unmarshal(data, &pf); err != nil {
				return fmt.Errorf("parse profiles %s: %w", path, err)
			}
			for name := range pf.Profiles {
				fmt.Println(name)
			}
			return nil
		},
	}
}
