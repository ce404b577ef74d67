// Package main provides the entry point for the ontology learning API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ontology_api",
	Short: "Ontology learning HTTP API server",
	Long:  "Ontology API infers a conceptual data model (concepts, attributes, relationships) from relational database schemas using fine-tuned language models, exposed via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
