package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/siherrmann/paperdex"
	"github.com/siherrmann/paperdex/model"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <papers-directory> [query]", os.Args[0])
	}
	dir := os.Args[1]
	query := "transformer attention mechanisms"
	if len(os.Args) > 2 {
		query = os.Args[2]
	}

	config := model.DefaultConfig()
	config.PersistDirectory = "./paperdex_data"

	p, err := paperdex.NewDefault(config)
	if err != nil {
		log.Fatalf("Failed to create paperdex: %v", err)
	}
	defer p.Close()

	// Ingest every PDF in the directory. Duplicates and unreadable files
	// are reported per file and never abort the batch.
	fmt.Printf("Ingesting papers from %s...\n", dir)
	results, err := p.AddPapersFromDirectory(context.Background(), dir)
	if err != nil {
		log.Fatalf("Failed to ingest papers: %v", err)
	}
	for _, result := range results {
		switch {
		case result.Err != nil:
			fmt.Printf("  skipped %s: %v\n", result.Path, result.Err)
		case result.Duplicate:
			fmt.Printf("  duplicate %s -> %s\n", result.Path, result.DocumentID)
		default:
			fmt.Printf("  indexed %s -> %s\n", result.Path, result.DocumentID)
		}
	}

	stats, err := p.Stats()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	fmt.Printf("\nCollection: %d documents, %d chunks\n", stats.DocumentCount, stats.ChunkCount)

	// Search for the most relevant passages
	fmt.Printf("\nQuerying: %s\n", query)

	queryConfig := model.DefaultQueryConfig()
	queryConfig.TopK = 5

	passages, err := p.Search(context.Background(), query, queryConfig)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	fmt.Printf("\nFound %d results:\n", len(passages))
	for i, passage := range passages {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		fmt.Printf("Score: %.4f\n", passage.Similarity)
		fmt.Printf("Title: %s\n", passage.Title)
		fmt.Printf("Text: %.200s\n", passage.Text)
	}

	// Optional: group the collection into labeled topic clusters when an
	// API key for the label generator is available.
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		if err := p.UseClaudeLabeler(apiKey, ""); err != nil {
			log.Fatalf("Failed to set up labeler: %v", err)
		}

		fmt.Println("\nClustering collection...")
		assignments, err := p.Cluster(context.Background())
		if err != nil {
			log.Fatalf("Failed to cluster: %v", err)
		}
		for documentID, category := range assignments {
			fmt.Printf("  %s -> %s\n", documentID, category)
		}
	}

	fmt.Println("\nBasic example completed successfully!")
}
