package main

import "github.com/perf-analysis/cmd/auditcli/cmd"

func main() {
	cmd.Execute()
}
