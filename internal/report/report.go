// Package report renders completed deck analyses into downloadable
// formats.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"deckintel-backend/internal/analysis"
)

// ErrAnalysisNotReady indicates a report was requested for a deck that
// has not completed analysis.
var ErrAnalysisNotReady = errors.New("analysis not ready")

const statusCompleted = "completed"

// Data is everything a report needs. Scores are on the 0-100 scale.
type Data struct {
	DeckID      string
	FileName    string
	CompanyName string
	Status      string
	AnalyzedAt  time.Time
	GeneratedAt time.Time
	Analysis    analysis.Result
	Sections    []analysis.Section
}

func (d Data) ready() error {
	if d.Status != statusCompleted {
		return fmt.Errorf("%w: deck status is %q", ErrAnalysisNotReady, d.Status)
	}
	return nil
}

func (d Data) generatedAt() time.Time {
	if d.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return d.GeneratedAt
}

const (
	heavyRule = "═══════════════════════════════════════════════════════════════"
	lightRule = "───────────────────────────────────────────────────────────────"
)

// Text renders the plain-text report.
func Text(d Data) (string, error) {
	if err := d.ready(); err != nil {
		return "", err
	}
	a := d.Analysis

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", heavyRule)
	fmt.Fprintf(&b, "          DECKINTEL - PITCH DECK ANALYSIS REPORT\n")
	fmt.Fprintf(&b, "%s\n\n", heavyRule)

	fmt.Fprintf(&b, "Company: %s\n", d.CompanyName)
	fmt.Fprintf(&b, "Deck: %s\n", d.FileName)
	fmt.Fprintf(&b, "Analysis Date: %s\n", d.AnalyzedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "Report ID: %s\n\n", d.DeckID)

	fmt.Fprintf(&b, "%s\n", lightRule)
	fmt.Fprintf(&b, "                    EXECUTIVE SUMMARY\n")
	fmt.Fprintf(&b, "%s\n\n", lightRule)
	fmt.Fprintf(&b, "SSO READINESS SCORE: %.0f/100\n", a.OverallScore)
	fmt.Fprintf(&b, "RECOMMENDATION: %s\n\n", a.Recommendation)

	fmt.Fprintf(&b, "SCORE BREAKDOWN:\n\n")
	for _, row := range scoreRows(a) {
		fmt.Fprintf(&b, "  - %s: %.0f/100\n", row.label, row.score)
	}
	b.WriteString("\n")

	writeNumberedList(&b, "KEY INSIGHTS:", a.KeyInsights)
	writeNumberedList(&b, "STRENGTHS:", a.Strengths)
	writeNumberedList(&b, "AREAS FOR IMPROVEMENT:", a.Weaknesses)

	if cv := a.ChecklistVerification; cv != nil {
		fmt.Fprintf(&b, "%s\n", lightRule)
		fmt.Fprintf(&b, "              CHECKLIST VERIFICATION RESULTS\n")
		fmt.Fprintf(&b, "%s\n\n", lightRule)
		fmt.Fprintf(&b, "Foundational Checklist Score: %.0f/100\n\n", cv.FoundationalChecklistScore)
		fmt.Fprintf(&b, "Unit Economics Complete: %s\n", checkMark(cv.UnitEconomicsComplete))
		fmt.Fprintf(&b, "Growth Metrics Complete: %s\n", checkMark(cv.GrowthMetricsComplete))
		fmt.Fprintf(&b, "Payment Info Complete: %s\n\n", checkMark(cv.PaymentInfoComplete))

		if len(cv.VerifiedItems) > 0 {
			writeNumberedList(&b, "VERIFIED IN DECK:", cv.VerifiedItems)
		}
		if len(cv.MissingItems) > 0 {
			writeNumberedList(&b, "MISSING FROM DECK:", cv.MissingItems)
		}
	}

	if len(a.VisualInsights) > 0 {
		fmt.Fprintf(&b, "%s\n", lightRule)
		fmt.Fprintf(&b, "         VISUAL DATA ANALYSIS (Charts & Graphs)\n")
		fmt.Fprintf(&b, "%s\n\n", lightRule)
		for i, insight := range a.VisualInsights {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, insight)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\n", lightRule)
	fmt.Fprintf(&b, "              DETAILED SECTION ANALYSIS\n")
	fmt.Fprintf(&b, "%s\n\n", lightRule)

	for i, section := range d.Sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ToUpper(section.SectionName))
		fmt.Fprintf(&b, "   Score: %.0f/100\n\n", section.SectionScore)
		fmt.Fprintf(&b, "   %s\n\n", section.Feedback)

		if len(section.Strengths) > 0 {
			b.WriteString("   Strengths:\n")
			for _, s := range section.Strengths {
				fmt.Fprintf(&b, "   + %s\n", s)
			}
			b.WriteString("\n")
		}
		if len(section.Improvements) > 0 {
			b.WriteString("   Improvements:\n")
			for _, imp := range section.Improvements {
				fmt.Fprintf(&b, "   > %s\n", imp)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n\n", lightRule)
	}

	fmt.Fprintf(&b, "\n%s\n", heavyRule)
	fmt.Fprintf(&b, "     Generated by Deckintel Intelligence Engine\n")
	fmt.Fprintf(&b, "     Report Generated: %s\n", d.generatedAt().Format(time.RFC1123))
	fmt.Fprintf(&b, "%s\n", heavyRule)

	return b.String(), nil
}

// Markdown renders the Markdown report.
func Markdown(d Data) (string, error) {
	if err := d.ready(); err != nil {
		return "", err
	}
	a := d.Analysis

	var b strings.Builder
	b.WriteString("# Deckintel - Pitch Deck Analysis Report\n\n---\n\n")

	fmt.Fprintf(&b, "**Company:** %s  \n", d.CompanyName)
	fmt.Fprintf(&b, "**Deck:** %s  \n", d.FileName)
	fmt.Fprintf(&b, "**Analysis Date:** %s  \n", d.AnalyzedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "**Report ID:** %s  \n\n", d.DeckID)

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "### SSO Readiness Score: **%.0f/100**\n\n", a.OverallScore)
	fmt.Fprintf(&b, "**Recommendation:** %s\n\n", a.Recommendation)

	b.WriteString("### Score Breakdown\n\n")
	b.WriteString("| Category | Score |\n|----------|-------|\n")
	for _, row := range scoreRows(a) {
		fmt.Fprintf(&b, "| %s | %.0f/100 |\n", row.label, row.score)
	}
	b.WriteString("\n")

	writeBulletSection(&b, "## Key Insights", a.KeyInsights)
	writeBulletSection(&b, "## Strengths", a.Strengths)
	writeBulletSection(&b, "## Areas for Improvement", a.Weaknesses)

	if cv := a.ChecklistVerification; cv != nil {
		b.WriteString("## Checklist Verification Results\n\n")
		fmt.Fprintf(&b, "**Foundational Checklist Score:** %.0f/100\n\n", cv.FoundationalChecklistScore)
		b.WriteString("| Requirement | Status |\n|-------------|--------|\n")
		fmt.Fprintf(&b, "| Unit Economics Complete | %s |\n", checkMark(cv.UnitEconomicsComplete))
		fmt.Fprintf(&b, "| Growth Metrics Complete | %s |\n", checkMark(cv.GrowthMetricsComplete))
		fmt.Fprintf(&b, "| Payment Info Complete | %s |\n\n", checkMark(cv.PaymentInfoComplete))

		if len(cv.VerifiedItems) > 0 {
			writeBulletSection(&b, "### Verified in Deck", cv.VerifiedItems)
		}
		if len(cv.MissingItems) > 0 {
			writeBulletSection(&b, "### Missing from Deck", cv.MissingItems)
		}
	}

	if len(a.VisualInsights) > 0 {
		writeBulletSection(&b, "## Visual Data Analysis", a.VisualInsights)
	}

	b.WriteString("## Detailed Section Analysis\n\n")
	for i, section := range d.Sections {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, section.SectionName)
		fmt.Fprintf(&b, "**Score:** %.0f/100\n\n", section.SectionScore)
		fmt.Fprintf(&b, "%s\n\n", section.Feedback)

		if len(section.Strengths) > 0 {
			b.WriteString("**Strengths:**\n")
			for _, s := range section.Strengths {
				fmt.Fprintf(&b, "- %s\n", s)
			}
			b.WriteString("\n")
		}
		if len(section.Improvements) > 0 {
			b.WriteString("**Improvements:**\n")
			for _, imp := range section.Improvements {
				fmt.Fprintf(&b, "- %s\n", imp)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "*Generated by Deckintel Intelligence Engine on %s*\n", d.generatedAt().Format(time.RFC1123))

	return b.String(), nil
}

type scoreRow struct {
	label string
	score float64
}

func scoreRows(a analysis.Result) []scoreRow {
	return []scoreRow{
		{"Problem", a.ProblemScore},
		{"Solution", a.SolutionScore},
		{"Market Opportunity", a.MarketScore},
		{"Traction & Growth", a.TractionScore},
		{"Team & Execution", a.TeamScore},
		{"Financials & Unit Economics", a.FinancialsScore},
	}
}

func checkMark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func writeNumberedList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "%s\n\n", title)
	for i, item := range items {
		fmt.Fprintf(b, "  %d. %s\n", i+1, item)
	}
	b.WriteString("\n")
}

func writeBulletSection(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "%s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
