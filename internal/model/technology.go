package model

// Technology is the canonical generation technology of an installation
type Technology string

const (
	TechWind               Technology = "wind"
	TechPhotovoltaic       Technology = "photovoltaic"
	TechHydro              Technology = "hydro"
	TechAnaerobicDigestion Technology = "anaerobic_digestion"
	TechMicroCHP           Technology = "micro_chp"
)

// AllTechnologies lists every canonical technology in display order
var AllTechnologies = []Technology{
	TechWind,
	TechPhotovoltaic,
	TechHydro,
	TechAnaerobicDigestion,
	TechMicroCHP,
}

// Valid reports whether t is one of the canonical technologies
func (t Technology) Valid() bool {
	switch t {
	case TechWind, TechPhotovoltaic, TechHydro, TechAnaerobicDigestion, TechMicroCHP:
		return true
	}
	return false
}

// Label returns the human-readable name used in catalogue descriptions
func (t Technology) Label() string {
	switch t {
	case TechWind:
		return "Wind"
	case TechPhotovoltaic:
		return "Photovoltaic"
	case TechHydro:
		return "Hydro"
	case TechAnaerobicDigestion:
		return "Anaerobic digestion"
	case TechMicroCHP:
		return "Micro CHP"
	}
	return string(t)
}
