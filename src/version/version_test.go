package version

import (
	"strings"
	"testing"
)

func TestVersionCarriesFlag(t *testing.T) {
	if Flag == "" {
		return
	}
	if !strings.HasSuffix(Version, "-"+Flag) {
		t.Fatalf("Version %s should carry the flag %s", Version, Flag)
	}
}
