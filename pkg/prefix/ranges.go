package prefix

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pedrokiefer/dangleip/pkg/fetch"
)

// Ranges is the published ip-ranges.json document.
type Ranges struct {
	SyncToken    string      `json:"syncToken"`
	CreateDate   string      `json:"createDate"`
	Prefixes     []Range     `json:"prefixes"`
	IPv6Prefixes []IPv6Range `json:"ipv6_prefixes"`
}

type Range struct {
	IPPrefix           string `json:"ip_prefix"`
	Region             string `json:"region"`
	Service            string `json:"service"`
	NetworkBorderGroup string `json:"network_border_group"`
}

type IPv6Range struct {
	IPv6Prefix         string `json:"ipv6_prefix"`
	Region             string `json:"region"`
	Service            string `json:"service"`
	NetworkBorderGroup string `json:"network_border_group"`
}

// Source says where the ranges document lives and which entries to keep.
// File wins over URL. Empty Services or Regions keep everything.
type Source struct {
	URL      string
	File     string
	Services []string
	Regions  []string
}

func (s Source) String() string {
	if s.File != "" {
		return s.File
	}
	return s.URL
}

// Select returns the CIDRs matching services and regions. Service and region
// names compare case-insensitively; duplicates are dropped.
func (r *Ranges) Select(services, regions []string) []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(cidr, service, region string) {
		if !matches(services, service) || !matches(regions, region) {
			return
		}
		if seen[cidr] {
			return
		}
		seen[cidr] = true
		out = append(out, cidr)
	}
	for _, p := range r.Prefixes {
		add(p.IPPrefix, p.Service, p.Region)
	}
	for _, p := range r.IPv6Prefixes {
		add(p.IPv6Prefix, p.Service, p.Region)
	}
	return out
}

func matches(filter []string, v string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.EqualFold(f, v) {
			return true
		}
	}
	return false
}

// ReadRanges loads the document named by src without filtering it.
func ReadRanges(ctx context.Context, src Source) (*Ranges, error) {
	var ranges Ranges
	if src.File != "" {
		data, err := os.ReadFile(src.File)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &ranges); err != nil {
			return nil, fmt.Errorf("decode %s: %w", src.File, err)
		}
		return &ranges, nil
	}

	if src.URL == "" {
		return nil, fmt.Errorf("no prefix list source configured")
	}
	if err := fetch.JSON(ctx, src.URL, &ranges); err != nil {
		return nil, err
	}
	return &ranges, nil
}

// Load reads the ranges document and builds the filtered List.
func Load(ctx context.Context, src Source) (*List, error) {
	ranges, err := ReadRanges(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load prefix list from %s: %w", src, err)
	}

	cidrs := ranges.Select(src.Services, src.Regions)
	l, err := Parse(cidrs)
	if err != nil {
		return nil, err
	}
	if l.Len() == 0 {
		log.Warn("prefix list is empty, nothing will be classified as vulnerable", "source", src.String(), "services", src.Services, "regions", src.Regions)
	}
	log.Debug("loaded prefix list", "source", src.String(), "sync_token", ranges.SyncToken, "prefixes", l.Len())
	return l, nil
}
