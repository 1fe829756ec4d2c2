package version

import "fmt"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/netscope-network/netscope/pkg/version.Version=v1.0.0 \
//	  -X github.com/netscope-network/netscope/pkg/version.GitCommit=abc1234"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a one-line human-readable version string.
func Info() string {
	return fmt.Sprintf("netscope %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
