package config

// A literal configuration value that itself starts with "env:" cannot be
// represented: internal/clientpool always treats an "env:" prefix as an
// environment-variable reference when resolving Auth/Headers/Env fields at
// connect time, per spec.md §9 ("env: escaping ... is accepted, implementers
// should document the limitation").
