// Package configs provides embedded configuration templates for storyindex.
//
// The templates are used by:
//   - cmd/storyindex/cmd/config.go `config init` creates .storyindex.yaml
//   - cmd/storyindex/cmd/config.go `config init --user` creates the user config
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/storyindex/config.yaml)
//  3. Project config (.storyindex.yaml)
//  4. Environment variables (STORYINDEX_*)
package configs

import _ "embed"

// StoriesPlaceholder is the line in ProjectConfigTemplate that `config init`
// replaces with the discovered story directories.
const StoriesPlaceholder = "stories: []\n"

// UserConfigTemplate holds machine-level settings shared by every project.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate holds the settings version-controlled with a project.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
