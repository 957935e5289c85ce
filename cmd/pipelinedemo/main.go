// Command pipelinedemo loads a declarative pipeline manifest and either
// describes its planned phase structure or executes it with no-op node
// behavior, for exercising the framework end to end.
package main

import (
	"github.com/joho/godotenv"

	"github.com/keyvi-go/pipeline/cmd/pipelinedemo/cmd"
)

func main() {
	_ = godotenv.Load()
	cmd.Execute()
}
