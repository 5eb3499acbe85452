package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mikeboe/devtools-research/pkg/research"
)

func printResults(w io.Writer, state *research.ResearchState) {
	fmt.Fprintf(w, "\nResults for: %s\n", state.Query)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for i, company := range state.Companies {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, company.Name)
		fmt.Fprintf(w, "   Website: %s\n", company.Website)
		fmt.Fprintf(w, "   Pricing: %s\n", company.PricingModel)
		fmt.Fprintf(w, "   Open Source: %s\n", yesNo(company.IsOpenSource))
		if len(company.TechStack) > 0 {
			fmt.Fprintf(w, "   Tech Stack: %s\n", strings.Join(firstN(company.TechStack, 5), ", "))
		}
		if len(company.LanguageSupport) > 0 {
			fmt.Fprintf(w, "   Language Support: %s\n", strings.Join(firstN(company.LanguageSupport, 5), ", "))
		}
		fmt.Fprintf(w, "   API: %s\n", availability(company.APIAvailable))
		if len(company.IntegrationCapabilities) > 0 {
			fmt.Fprintf(w, "   Integrations: %s\n", strings.Join(firstN(company.IntegrationCapabilities, 4), ", "))
		}
		if company.Description != "" && company.Description != "Failed" {
			fmt.Fprintf(w, "   Description: %s\n", company.Description)
		}
	}

	if state.Analysis != "" {
		fmt.Fprintln(w, "\nDeveloper Recommendations:")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintln(w, state.Analysis)
	}
}

func yesNo(b *bool) string {
	if b == nil {
		return "Unknown"
	}
	if *b {
		return "Yes"
	}
	return "No"
}

func availability(b *bool) string {
	if b == nil {
		return "Unknown"
	}
	if *b {
		return "Available"
	}
	return "Not Available"
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
