package vuln

import (
	"github.com/fatih/color"
	"inet.af/netaddr"
)

var VULN = color.RedString("[VULN]")
var INVALID = color.YellowString("[INVALID]")

// Candidate is one address to classify. Name is the DNS name it was resolved
// from, or the address itself when the caller passed a literal IP.
type Candidate struct {
	Name string
	IP   netaddr.IP
}

type Finding struct {
	Name    string  `json:"name"`
	Verdict Verdict `json:"verdict"`

	// Reachable is set only when the vulnerable address was probed.
	Reachable *bool `json:"reachable,omitempty"`
}

// Findings groups the classification of one run.
type Findings struct {
	Checked    int       `json:"checked"`
	Vulnerable []Finding `json:"vulnerable"`
	Safe       []Finding `json:"safe"`

	// Invalid lists names that did not resolve to any usable address.
	Invalid []string `json:"invalid,omitempty"`
}

func NewFindings() *Findings {
	return &Findings{
		Vulnerable: []Finding{},
		Safe:       []Finding{},
	}
}

func (f *Findings) Add(fi Finding) {
	f.Checked++
	if fi.Verdict.Vulnerable {
		f.Vulnerable = append(f.Vulnerable, fi)
		return
	}
	f.Safe = append(f.Safe, fi)
}

func (f *Findings) HasVulnerable() bool {
	return len(f.Vulnerable) > 0
}
