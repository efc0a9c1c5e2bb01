package pedpeel

import (
	"fmt"
)

type ElimErrorKind int

const (
	ElimPass1 ElimErrorKind = iota + 1
	ElimPass2Kid
	ElimPass2Par
	ElimPass2YM
	XHetMale
	YHetMale
	MitHetFemale
	YObsFemale
	HalfObs
)

var elimErrorNames = map[ElimErrorKind]string{
	ElimPass1:    "GEN_ELIM_PASS1",
	ElimPass2Kid: "GEN_ELIM_PASS2_KID",
	ElimPass2Par: "GEN_ELIM_PASS2_PAR",
	ElimPass2YM:  "GEN_ELIM_PASS2_YM",
	XHetMale:     "X_HET_MALE",
	YHetMale:     "Y_HET_MALE",
	MitHetFemale: "MIT_HET_FEMALE",
	YObsFemale:   "Y_OBS_FEMALE",
	HalfObs:      "HALF_OBS",
}

func (k ElimErrorKind) String() string {
	if s, ok := elimErrorNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ElimErrorKind(%d)", int(k))
}

// ElimError records one Mendelian or sex inconsistency. Family and
// Individual are -1 when not applicable.
type ElimError struct {
	Kind       ElimErrorKind
	Marker     string
	Component  int
	Family     int
	Individual int
}

func (e ElimError) Error() string {
	return fmt.Sprintf("%v: marker %v; component %v; family %v; individual %v", e.Kind, e.Marker, e.Component, e.Family, e.Individual)
}
