// Package semver orders release versions.
//
// It accepts strict Semantic Versioning 2.0.0 strings (an optional leading
// "v" is tolerated) and compares them by precedence: numeric core first,
// then pre-release identifiers, ignoring build metadata.
package semver
