package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/arthur-debert/beout/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/arthur-debert/beout/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/arthur-debert/beout/internal/version.Date={{.Date}}
)

