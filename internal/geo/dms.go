package geo

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dronemap/footprints/pkg/core"
)

var (
	dmsDegrees    = regexp.MustCompile(`(?i)([\d.]+)\s*deg`)
	dmsMinutes    = regexp.MustCompile(`([\d.]+)\s*'`)
	dmsSeconds    = regexp.MustCompile(`([\d.]+)\s*"`)
	dmsHemisphere = regexp.MustCompile(`[NSWE]`)
)

// ParseDMS parses a degrees/minutes/seconds string such as `68 deg 34' 49.69" S`
// into signed decimal degrees. S and W hemispheres are negative.
func ParseDMS(s string) (float64, error) {
	deg := dmsDegrees.FindStringSubmatch(s)
	mins := dmsMinutes.FindStringSubmatch(s)
	sec := dmsSeconds.FindStringSubmatch(s)
	// the hemisphere trails the value, so take the last letter found
	hemis := dmsHemisphere.FindAllString(s, -1)
	if deg == nil || mins == nil || sec == nil || len(hemis) == 0 {
		return 0, core.Invalid("DMS", s, "expected degrees, minutes, seconds and hemisphere")
	}

	d, errD := strconv.ParseFloat(deg[1], 64)
	m, errM := strconv.ParseFloat(mins[1], 64)
	sc, errS := strconv.ParseFloat(sec[1], 64)
	if errD != nil || errM != nil || errS != nil {
		return 0, core.Invalid("DMS", s, "non-numeric component")
	}

	decimal := d + m/60 + sc/3600
	if hemi := hemis[len(hemis)-1]; hemi == "S" || hemi == "W" {
		decimal = -decimal
	}
	return decimal, nil
}

// ParseDecimal parses a plain decimal coordinate. A ref of S/W (or South/West)
// forces the value negative.
func ParseDecimal(s, ref string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, core.Invalid("decimal coordinate", s, "not a number")
	}
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "SOUTH", "W", "WEST":
		if v > 0 {
			v = -v
		}
	}
	return v, nil
}
