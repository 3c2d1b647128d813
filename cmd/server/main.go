package main // Entry point package

import "github.com/iliyamo/club-table-reservation/cmd"

func main() {
	cmd.Execute()
}
