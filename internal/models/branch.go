package models

import "strings"

type Branch string

const (
	BranchMadina Branch = "madina"
	BranchAccra  Branch = "accra"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type BranchInfo struct {
	Branch      Branch      `json:"branch"`
	Name        string      `json:"name"`
	Prefix      string      `json:"prefix"`
	Phone       string      `json:"phone"`
	Coordinates Coordinates `json:"coordinates"`
}

var branches = []BranchInfo{
	{
		Branch:      BranchMadina,
		Name:        "Madina",
		Prefix:      "MAD",
		Phone:       "0598911140",
		Coordinates: Coordinates{Lat: 5.6700, Lng: -0.1650},
	},
	{
		Branch:      BranchAccra,
		Name:        "Accra",
		Prefix:      "ACC",
		Phone:       "0207913529",
		Coordinates: Coordinates{Lat: 5.5600, Lng: -0.2050},
	},
}

func Branches() []BranchInfo {
	out := make([]BranchInfo, len(branches))
	copy(out, branches)
	return out
}

func LookupBranch(b Branch) (BranchInfo, bool) {
	for _, info := range branches {
		if info.Branch == b {
			return info, true
		}
	}
	return BranchInfo{}, false
}

// ParseBranch accepts the branch id or its display name in any case.
func ParseBranch(raw string) (Branch, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, info := range branches {
		if value == string(info.Branch) || value == strings.ToLower(info.Name) {
			return info.Branch, true
		}
	}
	return "", false
}
