package battlenet

// Region is a Battle.net API region. Every guild and every issued token is
// bound to exactly one region; requests never cross regions.
type Region string

const (
	RegionUS Region = "us"
	RegionEU Region = "eu"
	RegionKR Region = "kr"
	RegionTW Region = "tw"
)

// AllRegions lists the regions a sync pass iterates, in a fixed order.
var AllRegions = []Region{RegionUS, RegionEU, RegionKR, RegionTW}

// Valid reports whether r is a known region.
func (r Region) Valid() bool {
	switch r {
	case RegionUS, RegionEU, RegionKR, RegionTW:
		return true
	default:
		return false
	}
}

func (r Region) String() string {
	return string(r)
}
