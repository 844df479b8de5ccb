package password

import (
	"os"
	"testing"
)

// unsetEnv removes k for the test; t.Setenv beforehand registers the restore.
func unsetEnv(t *testing.T, k string) {
	t.Helper()
	if err := os.Unsetenv(k); err != nil {
		t.Fatalf("unsetenv %s: %v", k, err)
	}
}
