//go:build release

package descriptors

const debugAssertions = false
