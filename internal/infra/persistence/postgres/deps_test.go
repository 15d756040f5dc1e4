package postgres

import (
	"testing"

	"argjournal/testutil"
)

// Archive backends may only depend on the domain contract.
func TestImportsAreDomainOrStdlib(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ModuleImportsExcept("argjournal/pkg/domain"), "archive backend layering")
}
