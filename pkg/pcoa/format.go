package pcoa

import (
	"fmt"
	"math"
	"strings"
)

const (
	noEigenvaluesPlaceholder  = "No eigenvalues output by algorithm."
	noProportionsPlaceholder  = "No proportions explained output by algorithm."
	noEigenvectorsPlaceholder = "No eigenvectors output by algorithm."
)

// FormatResult renders the three-section report: eigenvalues, proportions
// explained as percentages, and the scaled eigenvector matrix. Sections are
// separated by a blank line. A result without usable eigenvalues renders
// placeholder sentences instead of empty headers.
func FormatResult(r *Result) string {
	var sb strings.Builder

	if !hasNumeric(r.Eigenvalues) {
		sb.WriteString(noEigenvaluesPlaceholder)
		sb.WriteString("\n\n")
		sb.WriteString(noProportionsPlaceholder)
		sb.WriteString("\n\n")
		sb.WriteString(noEigenvectorsPlaceholder)
		sb.WriteString("\n")
		return sb.String()
	}

	k := len(r.Eigenvalues)
	fmt.Fprintf(&sb, "%d eigenvalues:\n", k)
	for _, v := range r.Eigenvalues {
		fmt.Fprintf(&sb, "%.10f\n", v)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "%d proportions explained (%%):\n", k)
	for _, p := range r.Proportions {
		fmt.Fprintf(&sb, "%.4f\n", p*100)
	}
	sb.WriteString("\n")

	n, _ := r.Coordinates.Dims()
	fmt.Fprintf(&sb, "%dx%d eigenvectors:\n", n, k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			if j > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%.10f", r.Coordinates.At(i, j))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// hasNumeric reports whether at least one value is a usable number.
func hasNumeric(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}
