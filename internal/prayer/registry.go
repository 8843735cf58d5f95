package prayer

import "strings"

// Registry holds one Service per configured location. The first registered
// service answers lookups that name no location.
type Registry struct {
	order    []*Service
	services map[string]*Service
}

func NewRegistry(services ...*Service) *Registry {
	r := &Registry{services: make(map[string]*Service, len(services))}
	for _, s := range services {
		if s == nil {
			continue
		}
		r.order = append(r.order, s)
		r.services[s.Location().Key()] = s
	}
	return r
}

// Lookup finds the service for city/country, or the default when both are empty.
func (r *Registry) Lookup(city, country string) (*Service, bool) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" && country == "" {
		if len(r.order) == 0 {
			return nil, false
		}
		return r.order[0], true
	}
	s, ok := r.services[Location{City: city, Country: country}.Key()]
	return s, ok
}

func (r *Registry) Services() []*Service {
	return r.order
}
