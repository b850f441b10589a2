package vuln

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pedrokiefer/dangleip/pkg/prefix"
)

// Scan classifies every candidate against prefixes. It stops at the first
// classification error.
func Scan(ctx context.Context, c *Classifier, prefixes *prefix.List, candidates []Candidate) (*Findings, error) {
	f := NewFindings()
	log.Debug("checking addresses", "count", len(candidates))

	for _, cand := range candidates {
		v, err := c.Classify(ctx, cand.IP, prefixes)
		if err != nil {
			return f, fmt.Errorf("classify %s (%s): %w", cand.Name, cand.IP, err)
		}
		f.Add(Finding{Name: cand.Name, Verdict: v})
		if v.Vulnerable {
			log.Warn("A record points to an unowned provider address", "label", "VULN", "name", cand.Name, "ip", v.IP)
			continue
		}
		log.Debug("address is safe", "name", cand.Name, "ip", v.IP, "reason", v.Reason)
	}
	return f, nil
}
