package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/ghost-wallet-hunter/hunter/pkg/store"
	"github.com/ghost-wallet-hunter/hunter/pkg/strategy"
)

// renderInvestigationSummary prints a terminal-readable summary of an
// investigation result for the one-shot `hunter investigate` subcommand.
// This is plain terminal text, not a UI.
func renderInvestigationSummary(result *strategy.InvestigationResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("─", 60))
	riskColor := color.New(color.FgGreen)
	switch result.RiskLevel {
	case "MEDIUM":
		riskColor = color.New(color.FgYellow)
	case "HIGH", "CRITICAL":
		riskColor = color.New(color.FgRed, color.Bold)
	}
	fmt.Printf("  Wallet:   %s\n", result.WalletAddress)
	fmt.Printf("  Risk:     %s (%.1f)\n", riskColor.Sprint(result.RiskLevel), result.OverallRiskScore)
	if result.Degraded {
		fmt.Println("  " + color.New(color.FgYellow).Sprint("⚠ upstream data degraded"))
	}
	fmt.Println(strings.Repeat("─", 60))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Detective", "Specialty", "Score", "Status"})
	for _, f := range result.DetectiveInsights {
		table.Append([]string{f.DetectiveID, f.Specialty, fmt.Sprintf("%.2f", f.RiskScore), f.Status})
	}
	table.Render()

	if len(result.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range result.Recommendations {
			fmt.Println("  " + r)
		}
	}
	if result.FinalReport != "" {
		fmt.Println("\n" + result.FinalReport)
	}
	fmt.Println()
}

// renderAgentList prints the `hunter agents` subcommand's table of
// persisted agents.
func renderAgentList(records []store.AgentRecord) {
	if len(records) == 0 {
		fmt.Println("no agents found")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Strategy", "State", "Created"})
	for _, a := range records {
		table.Append([]string{a.ID, a.Name, a.Strategy, a.State, a.CreatedAt.Format("2006-01-02 15:04")})
	}
	table.Render()
}
