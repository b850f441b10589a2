package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"inet.af/netaddr"

	"github.com/pedrokiefer/dangleip/pkg/collect"
	"github.com/pedrokiefer/dangleip/pkg/vuln"
)

func PrintFindings(w io.Writer, f *vuln.Findings) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Name", "IP", "Vulnerable", "Reason", "Reachable"})

	rows := append(append([]vuln.Finding{}, f.Vulnerable...), f.Safe...)
	for _, fi := range rows {
		reachable := "-"
		if fi.Reachable != nil {
			reachable = strconv.FormatBool(*fi.Reachable)
		}
		vulnerable := "-"
		if fi.Verdict.Vulnerable {
			vulnerable = vuln.VULN
		}
		table.Append([]string{fi.Name, fi.Verdict.IP.String(), vulnerable, string(fi.Verdict.Reason), reachable})
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, name := range f.Invalid {
		fmt.Fprintf(w, "%s %s did not resolve to any address\n", vuln.INVALID, name)
	}
	fmt.Fprintf(w, "%d checked, %d vulnerable\n", f.Checked, len(f.Vulnerable))
	return nil
}

func PrintHealth(w io.Writer, r *collect.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Account", "Calls", "Owned", "Complete", "Failures"})

	for _, h := range r.Accounts() {
		failures := make([]string, 0, len(h.Failures))
		for _, ce := range h.Failures {
			where := ce.Region
			if where == "" {
				where = "-"
			}
			failures = append(failures, fmt.Sprintf("%s/%s: %s", ce.Source, where, ce.Kind))
		}
		table.Append([]string{h.Account.String(), strconv.Itoa(h.Calls), strconv.Itoa(h.Owned), strconv.FormatBool(h.Complete()), strings.Join(failures, "\n")})
	}
	return table.Render()
}

func PrintIPs(w io.Writer, ips []netaddr.IP) {
	for _, ip := range ips {
		fmt.Fprintln(w, ip)
	}
}

func PrintRegions(w io.Writer, regions map[string][]string, order []string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Account", "Regions"})
	for _, account := range order {
		table.Append([]string{account, strings.Join(regions[account], "\n")})
	}
	return table.Render()
}

func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Health is the JSON view of a collection report.
type Health struct {
	Accounts []AccountHealth `json:"accounts"`
}

type AccountHealth struct {
	collect.AccountHealth
	Complete bool      `json:"complete"`
	Failures []Failure `json:"failures"`
}

type Failure struct {
	Source string `json:"source"`
	Region string `json:"region,omitempty"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

func NewHealth(r *collect.Report) Health {
	h := Health{Accounts: []AccountHealth{}}
	for _, a := range r.Accounts() {
		ah := AccountHealth{AccountHealth: a, Complete: a.Complete(), Failures: []Failure{}}
		for _, ce := range a.Failures {
			ah.Failures = append(ah.Failures, Failure{
				Source: string(ce.Source),
				Region: ce.Region,
				Kind:   string(ce.Kind),
				Error:  ce.Err.Error(),
			})
		}
		h.Accounts = append(h.Accounts, ah)
	}
	return h
}
