package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"geoanomaly/domain/cooccur"
)

// Narrative renders analysis results as plain-language markdown for
// non-statistician reviewers. Every number shown is traceable to the
// stored result; nothing is recomputed here.
type Narrative struct{}

// NewNarrative creates a report narrative renderer
func NewNarrative() *Narrative {
	return &Narrative{}
}

// Markdown renders a cooccurrence result as a markdown document.
func (n *Narrative) Markdown(result *cooccur.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Co-occurrence Analysis %s\n\n", result.RunID)
	fmt.Fprintf(&b, "Grid resolution **%g°**, %d cells, %d shuffle simulations per pairing.\n\n",
		result.Resolution, result.CellCount, result.ShuffleCount)

	if result.WindowEffectDetected {
		b.WriteString("**A window effect was detected**: at least one category pairing " +
			"co-occurs in the same cells more often than the shuffled baseline can explain.\n\n")
	} else {
		b.WriteString("No pairing exceeded the significance threshold: the observed overlap " +
			"is consistent with chance given how common each category is.\n\n")
	}

	if result.Strongest != nil {
		s := result.Strongest
		fmt.Fprintf(&b, "The strongest pairing is **%s**: observed together in %d cells against "+
			"an expected %.1f (z=%.2f, p=%.4f). Across %d simulations the null count never exceeded %.0f "+
			"and its 95th percentile was %.1f.\n\n",
			s.Pairing.Label, s.ObservedCount, s.Expected, s.ZScore, s.PValue,
			result.ShuffleCount, s.NullMax, s.NullP95)
	}

	b.WriteString("## All pairings\n\n")
	b.WriteString("| Pairing | Observed | Expected | z | p | Obs/Exp |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range result.Pairings {
		fmt.Fprintf(&b, "| %s | %d | %.1f | %.2f | %.4f | %.2f |\n",
			p.Pairing.Label, p.ObservedCount, p.Expected, p.ZScore, p.PValue, p.Ratio)
	}

	if len(result.Stratified) > 0 {
		b.WriteString("\n## Population-stratified view\n\n")
		b.WriteString("Pairings recomputed within each report-volume quartile. Signals that " +
			"survive stratification are unlikely to be observer-density artifacts.\n\n")
		for _, stratum := range result.Stratified {
			fmt.Fprintf(&b, "### Quartile %d (%d cells)\n\n", stratum.Quartile, stratum.CellCount)
			for _, p := range stratum.Pairings {
				fmt.Fprintf(&b, "- %s: z=%.2f, p=%.4f\n", p.Pairing.Label, p.ZScore, p.PValue)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// MultiResolutionMarkdown renders a multi-resolution sweep.
func (n *Narrative) MultiResolutionMarkdown(result *cooccur.MultiResolutionResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Multi-Resolution Sweep %s\n\n", result.RunID)
	b.WriteString("| Resolution | Cells | Multi-type cells | Fraction | Strongest z | Window effect |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range result.Points {
		fmt.Fprintf(&b, "| %g° | %d | %d | %.3f | %.2f | %t |\n",
			p.Resolution, p.CellCount, p.MultiTypeCells, p.MultiTypeFraction, p.StrongestZ, p.WindowEffect)
	}

	fmt.Fprintf(&b, "\nCorrelation between resolution and multi-type presence: **%.3f**. ",
		result.ResolutionCorrelation)
	b.WriteString("Opposite signs at fine and coarse resolutions indicate scale-dependent " +
		"clustering, which is an expected outcome rather than an inconsistency.\n")

	return b.String()
}

// HTML converts rendered markdown to HTML for the review surface.
func (n *Narrative) HTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.Render(doc, renderer))
}
