package catalog

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"shinydex/internal/apperr"
	"shinydex/internal/constants"
	"shinydex/internal/generation"
)

// Filter is a catalog read request. Offset, when set, wins over Page.
type Filter struct {
	Generations []int
	Search      string
	Type        string
	Page        int
	Limit       int
	Offset      *int
}

// Normalize applies defaults and the page size cap.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = constants.DefaultPageLimit
	}
	if f.Limit > constants.MaxPageLimit {
		f.Limit = constants.MaxPageLimit
	}
	if f.Offset != nil && *f.Offset < 0 {
		zero := 0
		f.Offset = &zero
	}
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))
	f.Type = strings.ToLower(strings.TrimSpace(f.Type))

	if len(f.Generations) > 0 {
		seen := make(map[int]bool, len(f.Generations))
		gens := make([]int, 0, len(f.Generations))
		for _, g := range f.Generations {
			if !seen[g] {
				seen[g] = true
				gens = append(gens, g)
			}
		}
		sort.Ints(gens)
		f.Generations = gens
	}
	return f
}

// maxSkip bounds the row offset a request may reach. It keeps (page-1)*limit
// far from int overflow.
const maxSkip = math.MaxInt32

// Skip is the number of rows before the requested page.
func (f Filter) Skip() int {
	if f.Offset != nil {
		return *f.Offset
	}
	return (f.Page - 1) * f.Limit
}

// Validate rejects filters that cannot be answered, before any query runs.
// A zero page or limit means the default.
func (f Filter) Validate() error {
	if f.Page < 0 {
		return apperr.Validation("page must be a positive integer")
	}
	if f.Limit < 0 {
		return apperr.Validation("limit must be a positive integer")
	}
	if f.Offset != nil && *f.Offset < 0 {
		return apperr.Validation("offset must be a non-negative integer")
	}

	n := f.Normalize()
	if n.Offset != nil {
		if *n.Offset > maxSkip {
			return apperr.Validation("offset is too large")
		}
	} else if n.Page-1 > maxSkip/n.Limit {
		return apperr.Validation("page is too large")
	}

	for _, g := range f.Generations {
		if _, ok := generation.ByID(g); !ok {
			return apperr.Validation("generation must be between 1 and 9")
		}
	}
	return nil
}

// ParseFilter reads the list query parameters:
// page, limit, offset, generation (comma separated), search, type.
func ParseFilter(v url.Values) (Filter, error) {
	var f Filter

	if s := strings.TrimSpace(v.Get("page")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Filter{}, apperr.Validation("page must be a positive integer")
		}
		f.Page = n
	}

	if s := strings.TrimSpace(v.Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Filter{}, apperr.Validation("limit must be a positive integer")
		}
		f.Limit = n
	}

	if s := strings.TrimSpace(v.Get("offset")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Filter{}, apperr.Validation("offset must be a non-negative integer")
		}
		f.Offset = &n
	}

	// generation=1,2 OR generation=1&generation=2
	for _, raw := range v["generation"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			g, err := strconv.Atoi(part)
			if err != nil {
				return Filter{}, apperr.Validation("generation must be a comma separated list of integers")
			}
			f.Generations = append(f.Generations, g)
		}
	}

	f.Search = v.Get("search")
	f.Type = v.Get("type")

	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f.Normalize(), nil
}
