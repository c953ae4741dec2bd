//go:build !release

package descriptors

// debugAssertions enables precondition checks that would otherwise be
// undefined behaviour. Build with -tags release to compile them out.
const debugAssertions = true
