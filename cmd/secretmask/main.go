// Command secretmask masks credentials in Kubernetes resource dumps.
package main

import (
	"os"

	"github.com/codeready-toolchain/secretmask/pkg/cli"
)

func main() {
	os.Exit(cli.Run())
}
