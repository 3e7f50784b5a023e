package config

// MergeScopes merges the user-scope and project-scope configs into one,
// per spec.md §3: "project overrides user on name collision". Either
// argument may be nil or empty (ParseFile never errors on a missing file).
func MergeScopes(user, project *Config) *Config {
	merged := &Config{Servers: make(map[string]ServerSpec)}

	if user != nil {
		for name, spec := range user.Servers {
			merged.Servers[name] = spec
		}
	}
	if project != nil {
		for name, spec := range project.Servers {
			merged.Servers[name] = spec
		}
	}

	return merged
}

// LoadScopes parses and merges the user-scope and project-scope config
// files. `env:` references are left unresolved here — spec.md §4.2
// requires they be resolved exactly once, at connect time, by
// internal/clientpool. Sanitized-name collisions are checked at catalog
// build time (catalog.FromPool), per spec.md's Design Notes: "this must
// be checked at catalog build".
func LoadScopes(userPath, projectPath string) (*Config, error) {
	user, err := ParseFile(userPath)
	if err != nil {
		return nil, err
	}
	project, err := ParseFile(projectPath)
	if err != nil {
		return nil, err
	}

	return MergeScopes(user, project), nil
}
