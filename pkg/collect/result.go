package collect

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aws/smithy-go"
	"inet.af/netaddr"

	"github.com/pedrokiefer/dangleip/pkg/session"
)

type Source string

const (
	SourceRegions     Source = "regions"
	SourceElasticIP   Source = "elastic-ip"
	SourceInstance    Source = "instance"
	SourceAccelerator Source = "global-accelerator"
)

// Kind tells why a collector call failed.
type Kind string

const (
	KindAssumption Kind = "assumption"
	KindPermission Kind = "permission"
	KindPartial    Kind = "partial"
	KindAPI        Kind = "api"
)

var permissionCodes = map[string]bool{
	"UnauthorizedOperation": true,
	"AccessDenied":          true,
	"AccessDeniedException": true,
	"AuthFailure":           true,
}

type CallError struct {
	Kind    Kind
	Source  Source
	Account session.Account
	Region  string
	Err     error
}

func (e *CallError) Error() string {
	region := e.Region
	if region == "" {
		region = "-"
	}
	return fmt.Sprintf("%s %s failure in %s for account %s: %s", e.Source, e.Kind, region, e.Account, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// classify maps a raw failure to a Kind. partial is set by the caller when
// some data was already collected.
func classify(err error, partial bool) Kind {
	var are *session.AssumeRoleError
	if errors.As(err, &are) {
		return KindAssumption
	}
	var ae smithy.APIError
	if errors.As(err, &ae) && permissionCodes[ae.ErrorCode()] {
		return KindPermission
	}
	if partial {
		return KindPartial
	}
	return KindAPI
}

// Result is the outcome of one collector call. A failed call may still carry
// IPs when pagination broke off midway (Kind partial).
type Result struct {
	Source  Source
	Account session.Account
	Region  string
	IPs     []netaddr.IP
	Err     error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// CallError returns the typed failure of r, or nil.
func (r Result) CallError() *CallError {
	var ce *CallError
	if errors.As(r.Err, &ce) {
		return ce
	}
	return nil
}

// OwnedSet is the union of addresses reported by the collectors.
type OwnedSet struct {
	ips map[netaddr.IP]struct{}
}

func NewOwnedSet() *OwnedSet {
	return &OwnedSet{ips: map[netaddr.IP]struct{}{}}
}

func (s *OwnedSet) Add(ips ...netaddr.IP) {
	for _, ip := range ips {
		s.ips[ip] = struct{}{}
	}
}

func (s *OwnedSet) Contains(ip netaddr.IP) bool {
	_, ok := s.ips[ip]
	return ok
}

func (s *OwnedSet) Len() int {
	return len(s.ips)
}

func (s *OwnedSet) Sorted() []netaddr.IP {
	out := make([]netaddr.IP, 0, len(s.ips))
	for ip := range s.ips {
		out = append(out, ip)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

type AccountHealth struct {
	Account  session.Account `json:"account"`
	Calls    int             `json:"calls"`
	Owned    int             `json:"owned"`
	Failures []*CallError    `json:"-"`
}

// Complete is false when any call for the account failed, which means an
// owned address may be missing and could later look abandoned.
func (h AccountHealth) Complete() bool {
	return len(h.Failures) == 0
}

// Report aggregates every Result of an owned-set collection.
type Report struct {
	Results []Result
}

func (r *Report) sort() {
	sort.SliceStable(r.Results, func(i, j int) bool {
		a, b := r.Results[i], r.Results[j]
		if a.Account.ID != b.Account.ID {
			return a.Account.ID < b.Account.ID
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Region < b.Region
	})
}

func (r *Report) Failures() []*CallError {
	var out []*CallError
	for _, res := range r.Results {
		if res.OK() {
			continue
		}
		if ce := res.CallError(); ce != nil {
			out = append(out, ce)
		}
	}
	return out
}

func (r *Report) Accounts() []AccountHealth {
	idx := map[string]int{}
	var out []AccountHealth
	for _, res := range r.Results {
		i, ok := idx[res.Account.ID]
		if !ok {
			i = len(out)
			idx[res.Account.ID] = i
			out = append(out, AccountHealth{Account: res.Account})
		}
		h := &out[i]
		h.Calls++
		h.Owned += len(res.IPs)
		if ce := res.CallError(); ce != nil {
			h.Failures = append(h.Failures, ce)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.ID < out[j].Account.ID })
	return out
}
