// Package reputation supplies the engine's IP and country reputation data.
// Sources are loaded once at initialization and merged into an immutable
// in-memory store, so the request path never touches the network.
package reputation

import (
	"context"
	"strings"
)

// Data is the raw output of one reputation source.
type Data struct {
	DenyListIPs       []string
	AnonymizerIPs     []string
	HighRiskCountries []string
}

// Source loads reputation data. Load happens at startup (and on explicit
// refresh), never on the request path.
type Source interface {
	Load(ctx context.Context) (Data, error)
}

// Store answers reputation lookups over preloaded data. It is immutable
// after construction and safe for concurrent use without locking.
type Store struct {
	denied      map[string]struct{}
	anonymizers map[string]struct{}
	countries   map[string]struct{}
}

// NewStore merges the data of all given sources into one lookup store.
func NewStore(data ...Data) *Store {
	s := &Store{
		denied:      make(map[string]struct{}),
		anonymizers: make(map[string]struct{}),
		countries:   make(map[string]struct{}),
	}
	for _, d := range data {
		for _, ip := range d.DenyListIPs {
			if ip != "" {
				s.denied[ip] = struct{}{}
			}
		}
		for _, ip := range d.AnonymizerIPs {
			if ip != "" {
				s.anonymizers[ip] = struct{}{}
			}
		}
		for _, cc := range d.HighRiskCountries {
			if cc != "" {
				s.countries[strings.ToUpper(cc)] = struct{}{}
			}
		}
	}
	return s
}

// IsDenied reports whether the IP is on the deny list.
func (s *Store) IsDenied(ip string) bool {
	_, ok := s.denied[ip]
	return ok
}

// IsAnonymizer reports whether the IP belongs to a known anonymizing
// network (Tor exit, VPN or proxy egress).
func (s *Store) IsAnonymizer(ip string) bool {
	_, ok := s.anonymizers[ip]
	return ok
}

// IsHighRiskCountry reports whether the ISO country code is configured
// as high risk.
func (s *Store) IsHighRiskCountry(countryCode string) bool {
	_, ok := s.countries[strings.ToUpper(countryCode)]
	return ok
}

// DenyListSize returns the number of denied IPs, for metrics.
func (s *Store) DenyListSize() int {
	return len(s.denied)
}

// StaticSource serves the lists carried in configuration.
type StaticSource struct {
	data Data
}

// NewStaticSource wraps config-provided lists as a Source.
func NewStaticSource(denyList, anonymizers, countries []string) *StaticSource {
	return &StaticSource{data: Data{
		DenyListIPs:       denyList,
		AnonymizerIPs:     anonymizers,
		HighRiskCountries: countries,
	}}
}

func (s *StaticSource) Load(_ context.Context) (Data, error) {
	return s.data, nil
}
