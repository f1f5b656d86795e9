package version

import "os"

var (
	// Version is expected to be set at build time.
	Version = ""

	// Product is the product name that license keys must cover.
	Product = "pro"
)

func init() {
	// Lets operators test version-pinned license keys against a development
	// build.
	if override, ok := os.LookupEnv("GRIDPRO_VERSION_OVERRIDE"); ok && override != "" {
		Version = override
	}
}

// IsDevelopment returns whether this is an unreleased build. Development
// builds skip license version constraints.
func IsDevelopment() bool {
	return Version == "" || Version == "latest"
}
