package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Document renders the report as a DOCX package: a zip archive whose
// word/document.xml carries the paragraphs, with page breaks between
// the summary, the overall findings, and the section details.
func Document(d Data) ([]byte, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}

	var body strings.Builder
	writeDocxSummary(&body, d)
	body.WriteString(pageBreak)
	writeDocxFindings(&body, d)
	body.WriteString(pageBreak)
	writeDocxSections(&body, d)

	return packDocx(body.String())
}

const pageBreak = `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`

func writeDocxSummary(b *strings.Builder, d Data) {
	a := d.Analysis
	heading(b, 1, "Pitch Deck Analysis Report")
	paragraph(b, "Deckintel Intelligence Engine")
	paragraph(b, "")

	heading(b, 2, "Company Information")
	paragraph(b, "Company: "+d.CompanyName)
	paragraph(b, "Deck: "+d.FileName)
	paragraph(b, "Analysis Date: "+d.AnalyzedAt.Format(time.RFC1123))
	paragraph(b, "Report ID: "+d.DeckID)
	paragraph(b, "")

	heading(b, 2, "Executive Summary")
	boldParagraph(b, fmt.Sprintf("SSO Readiness Score: %.0f/100", a.OverallScore))
	paragraph(b, "Recommendation: "+a.Recommendation)
	paragraph(b, "")

	heading(b, 2, "Score Breakdown")
	for _, row := range scoreRows(a) {
		paragraph(b, fmt.Sprintf("%s: %.0f/100", row.label, row.score))
	}
	paragraph(b, "")

	heading(b, 2, "Key Insights")
	numberedParagraphs(b, a.KeyInsights)
}

func writeDocxFindings(b *strings.Builder, d Data) {
	a := d.Analysis
	heading(b, 2, "Strengths")
	numberedParagraphs(b, a.Strengths)

	heading(b, 2, "Areas for Improvement")
	numberedParagraphs(b, a.Weaknesses)

	if cv := a.ChecklistVerification; cv != nil {
		heading(b, 2, "Checklist Verification Results")
		paragraph(b, fmt.Sprintf("Foundational Checklist Score: %.0f/100", cv.FoundationalChecklistScore))
		paragraph(b, "Unit Economics Complete: "+checkMark(cv.UnitEconomicsComplete))
		paragraph(b, "Growth Metrics Complete: "+checkMark(cv.GrowthMetricsComplete))
		paragraph(b, "Payment Info Complete: "+checkMark(cv.PaymentInfoComplete))
		paragraph(b, "")

		if len(cv.VerifiedItems) > 0 {
			heading(b, 3, "Verified in Deck")
			numberedParagraphs(b, cv.VerifiedItems)
		}
		if len(cv.MissingItems) > 0 {
			heading(b, 3, "Missing from Deck")
			numberedParagraphs(b, cv.MissingItems)
		}
	}

	if len(a.VisualInsights) > 0 {
		heading(b, 2, "Visual Data Analysis")
		numberedParagraphs(b, a.VisualInsights)
	}
}

func writeDocxSections(b *strings.Builder, d Data) {
	heading(b, 2, "Detailed Section Analysis")
	for i, section := range d.Sections {
		heading(b, 3, fmt.Sprintf("%d. %s (%.0f/100)", i+1, section.SectionName, section.SectionScore))
		paragraph(b, section.Feedback)

		if len(section.Strengths) > 0 {
			boldParagraph(b, "Strengths:")
			for _, s := range section.Strengths {
				paragraph(b, "- "+s)
			}
		}
		if len(section.Improvements) > 0 {
			boldParagraph(b, "Improvements:")
			for _, imp := range section.Improvements {
				paragraph(b, "- "+imp)
			}
		}
		paragraph(b, "")
	}
	paragraph(b, "Generated: "+d.generatedAt().Format(time.RFC1123))
}

func heading(b *strings.Builder, level int, text string) {
	size := 32
	switch level {
	case 2:
		size = 26
	case 3:
		size = 22
	}
	fmt.Fprintf(b,
		`<w:p><w:r><w:rPr><w:b/><w:sz w:val="%d"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
		size, escapeXML(text))
}

func paragraph(b *strings.Builder, text string) {
	fmt.Fprintf(b, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escapeXML(text))
}

func boldParagraph(b *strings.Builder, text string) {
	fmt.Fprintf(b, `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escapeXML(text))
}

func numberedParagraphs(b *strings.Builder, items []string) {
	for i, item := range items {
		paragraph(b, fmt.Sprintf("%d. %s", i+1, item))
	}
	paragraph(b, "")
}

func escapeXML(text string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(text)); err != nil {
		return ""
	}
	return buf.String()
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentXMLHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const documentXMLFooter = `</w:body></w:document>`

func packDocx(bodyXML string) ([]byte, error) {
	var out bytes.Buffer
	zw := zip.NewWriter(&out)

	files := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentXMLHeader + bodyXML + documentXMLFooter},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", f.name, err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
