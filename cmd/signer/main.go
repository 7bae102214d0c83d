// Package main provides the signer command-line tool for verifying and re-signing markdown reports.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"addrnorm/internal/formatter"
	"addrnorm/pkg/metadata"
)

func main() {
	inputPath := flag.String("input", "", "Path to markdown report (e.g., out/addresses.md)")
	sign := flag.Bool("sign", false, "Realign tables and re-sign the report in place")
	flag.Parse()

	if *inputPath == "" {
		fmt.Println("Usage: signer -input <path> [-sign]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	contentBytes, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Error reading file: %v\n", err)
	}

	content := string(contentBytes)
	fmt.Printf("📂 Reading: %s (%d bytes)\n", *inputPath, len(content))

	if *sign {
		signReport(*inputPath, content)

		return
	}

	verifyReport(content)
}

func verifyReport(content string) {
	meta, _ := metadata.Extract(content)

	ok, err := metadata.Verify(content)
	if err != nil {
		if errors.Is(err, metadata.ErrHashMismatch) {
			log.Fatalf("❌ Signature mismatch: report was modified after signing\n")
		}

		log.Fatalf("❌ Verification failed: %v\n", err)
	}

	if !ok {
		log.Fatalf("❌ Signature invalid\n")
	}

	fmt.Println("✅ Signature valid")
	fmt.Printf("  Last modified: %s\n", meta.LastModify)

	if meta.Batch != "" {
		fmt.Printf("  Batch:         %s\n", meta.Batch)
	}

	if meta.Validation {
		fmt.Println("  Validation:    all addresses passed")
	} else {
		fmt.Println("  Validation:    report contains defective addresses")
	}
}

func signReport(path, content string) {
	meta, body := metadata.Extract(content)

	formatted, err := formatter.FormatMarkdown(body)
	if err != nil {
		log.Fatalf("❌ Formatting failed: %v\n", err)
	}

	if meta != nil && formatted == body {
		if ok, _ := metadata.Verify(content); ok {
			fmt.Println("✅ Report already formatted and signed")

			return
		}
	}

	validated, batch := false, ""
	if meta != nil {
		validated, batch = meta.Validation, meta.Batch
	}

	fmt.Println("✍️  Signing file...")

	signed := metadata.Sign(formatted, validated, batch)

	if err := os.WriteFile(path, []byte(signed), 0644); err != nil {
		log.Fatalf("Error writing file: %v\n", err)
	}

	fmt.Printf("✅ Signed and saved to: %s\n", path)
}
