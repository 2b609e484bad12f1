// Command drover provisions servers over SSH from a declarative role
// manifest.
package main

import (
	"os"

	"github.com/jmgilman/drover/internal/cmd"

	// Built-in roles register themselves with the default registry.
	_ "github.com/jmgilman/drover/internal/roles/apache"
	_ "github.com/jmgilman/drover/internal/roles/apt"
	_ "github.com/jmgilman/drover/internal/roles/docker"
	_ "github.com/jmgilman/drover/internal/roles/gitrepo"
	_ "github.com/jmgilman/drover/internal/roles/pip"
	_ "github.com/jmgilman/drover/internal/roles/ruby"
	_ "github.com/jmgilman/drover/internal/roles/venv"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
