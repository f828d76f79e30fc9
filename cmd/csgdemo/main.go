// Command csgdemo converts YAML scene documents into meshes and reports
// what the conversion produced.
//
//	csgdemo convert scene.yaml --repeat 2
//	csgdemo engines
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
