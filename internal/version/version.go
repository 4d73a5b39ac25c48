package version

// Version information set at build time via ldflags:
// go build -ldflags "-X github.com/dustin/luckypick/internal/version.Version=1.0.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String renders the build information on one line.
func String() string {
	return Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
