package cmd

// Set at build time with -ldflags "-X github.com/pedrokiefer/dangleip/cmd.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)
