package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/catalpa-lab/secondbrain/pkg/service/workspace"
	"github.com/catalpa-lab/secondbrain/pkg/usecase"
)

// Profile is an optional TOML file tuning the assistant's behavior.
type Profile struct {
	SystemPrompt string `toml:"system_prompt"`
	MemoryLimit  int    `toml:"memory_limit"`
}

func (p *Profile) Validate() error {
	if p.MemoryLimit < 0 {
		return goerr.New("memory_limit must not be negative", goerr.V("memory_limit", p.MemoryLimit))
	}
	return nil
}

// App holds CLI flags for the workspace root and the assistant profile.
type App struct {
	workspacePath string
	profilePath   string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "workspace",
			Usage:       "Workspace root directory for the file store",
			Value:       "./workspace",
			Sources:     cli.EnvVars("SECONDBRAIN_WORKSPACE"),
			Destination: &x.workspacePath,
		},
		&cli.StringFlag{
			Name:        "profile",
			Usage:       "TOML profile with system prompt and memory settings",
			Sources:     cli.EnvVars("SECONDBRAIN_PROFILE"),
			Destination: &x.profilePath,
		},
	}
}

// Configure creates the workspace store and turns the profile, when given,
// into use case options.
func (x *App) Configure() (*workspace.Store, []usecase.Option, error) {
	files, err := workspace.New(x.workspacePath)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create workspace", goerr.V("path", x.workspacePath))
	}

	var opts []usecase.Option
	if x.profilePath != "" {
		data, err := os.ReadFile(x.profilePath)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to read profile", goerr.V("path", x.profilePath))
		}

		var profile Profile
		if err := toml.Unmarshal(data, &profile); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to parse profile", goerr.V("path", x.profilePath))
		}
		if err := profile.Validate(); err != nil {
			return nil, nil, goerr.Wrap(err, "invalid profile", goerr.V("path", x.profilePath))
		}

		opts = append(opts,
			usecase.WithSystemPrompt(profile.SystemPrompt),
			usecase.WithMemoryLimit(profile.MemoryLimit),
		)
	}

	return files, opts, nil
}
