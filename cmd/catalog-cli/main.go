package main

import "catalog-ingest/cmd/catalog-cli/cmd"

func main() {
	cmd.Execute()
}
