// ABOUTME: Version information for tonieconv
// ABOUTME: Product identity used in the Opus vendor string and CLI output
package version

import "fmt"

const (
	Product      = "tonieconv"
	Manufacturer = "tonietools"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

// String returns the product and version for display.
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
