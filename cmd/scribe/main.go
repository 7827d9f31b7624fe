package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "scribe"}

	root.AddCommand(serveCMD(), migrateCMD(), researchCMD())
	_ = root.Execute()
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
