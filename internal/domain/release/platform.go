package release

import (
	"fmt"
	"strings"
)

// Platform identifies an OS/architecture pair, for example "linux-x64".
type Platform string

// Supported operating systems and architectures.
var (
	knownOS = map[string]struct{}{
		"darwin": {},
		"linux":  {},
		"win32":  {},
	}
	knownArch = map[string]struct{}{
		"x64":   {},
		"ia32":  {},
		"arm64": {},
	}
)

// ParsePlatform validates and normalizes a platform identifier.
func ParsePlatform(raw string) (Platform, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))

	osName, arch, ok := strings.Cut(normalized, "-")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, raw)
	}

	if _, found := knownOS[osName]; !found {
		return "", fmt.Errorf("%w: os %q", ErrUnknownPlatform, osName)
	}

	if _, found := knownArch[arch]; !found {
		return "", fmt.Errorf("%w: arch %q", ErrUnknownPlatform, arch)
	}

	return Platform(normalized), nil
}

// PlatformFor maps Go's GOOS/GOARCH names onto a Platform.
func PlatformFor(goos, goarch string) (Platform, error) {
	osName := goos
	if goos == "windows" {
		osName = "win32"
	}

	var arch string

	switch goarch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "ia32"
	default:
		arch = goarch
	}

	return ParsePlatform(osName + "-" + arch)
}

// String implements fmt.Stringer.
func (p Platform) String() string {
	return string(p)
}
