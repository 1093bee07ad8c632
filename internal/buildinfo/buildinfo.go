package buildinfo

import "runtime/debug"

// Set via -ldflags at release time; falls back to VCS metadata when built
// from a checkout.
var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	commit := Commit
	if commit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					commit = s.Value
				}
			}
		}
	}
	return map[string]string{
		"version": Version,
		"commit":  commit,
		"builtAt": BuiltAt,
	}
}
