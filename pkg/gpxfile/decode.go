package gpxfile

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// rawPoint is a point candidate collected during the token walk.
// Elevation rides along separately because it is optional per point.
type rawPoint struct {
	lon, lat float64
	ele      float64
	hasEle   bool
}

// Decode parses GPX content into a Route.
//
// The walk is token-driven (xml.Decoder on the raw bytes) rather than a
// struct unmarshal so a single point with an unparseable lat or lon is
// dropped on its own instead of failing the whole file. Points come from
// the first <trk> only, all of its <trkseg> concatenated in document
// order; when no track exists or it is empty, the first <rte> is used.
//
// The display name is resolved with the priority: track name, route name
// (routes are only consulted when no track exists), metadata name,
// fallbackName with its ".gpx" suffix stripped.
//
// Returns *ParseError for malformed XML and ErrNoRoute when extraction
// yields zero coordinates.
func Decode(content []byte, fallbackName string) (Route, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		stack []string // open element names, for parent lookups

		metaName string

		trkSeen bool // a <trk> exists in the document
		inTrk   bool // inside the first <trk>
		trkName string
		trkPts  []rawPoint

		rteSeen bool
		inRte   bool // inside the first <rte>
		rteName string
		rtePts  []rawPoint

		cur      rawPoint
		curValid bool // lat and lon of the pending point both parsed
		inPoint  bool
	)

	parent := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Route{}, &ParseError{Err: err}
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "trk":
				inTrk = !trkSeen // later tracks are ignored entirely
				trkSeen = true
				stack = append(stack, el.Name.Local)

			case "rte":
				inRte = !rteSeen
				rteSeen = true
				stack = append(stack, el.Name.Local)

			case "name":
				var s string
				if err := dec.DecodeElement(&s, &el); err != nil {
					return Route{}, &ParseError{Err: err}
				}
				s = strings.TrimSpace(s)
				switch {
				case parent() == "metadata" && metaName == "":
					metaName = s
				case parent() == "trk" && inTrk && trkName == "":
					trkName = s
				case parent() == "rte" && inRte && rteName == "":
					rteName = s
				}
				// DecodeElement consumed the matching end tag, no push.

			case "trkpt", "rtept":
				cur, curValid = rawPoint{}, false
				inPoint = inTrk || inRte
				if inPoint {
					var lat, lon float64
					var haveLat, haveLon bool
					for _, a := range el.Attr {
						switch a.Name.Local {
						case "lat":
							if v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64); err == nil {
								lat, haveLat = v, true
							}
						case "lon":
							if v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64); err == nil {
								lon, haveLon = v, true
							}
						}
					}
					// Both attributes must parse; otherwise the point is
					// silently dropped, not reported as an error.
					if haveLat && haveLon {
						cur.lat, cur.lon = lat, lon
						curValid = true
					}
				}
				stack = append(stack, el.Name.Local)

			case "ele":
				var s string
				if err := dec.DecodeElement(&s, &el); err != nil {
					return Route{}, &ParseError{Err: err}
				}
				if inPoint {
					if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
						cur.ele, cur.hasEle = v, true
					}
				}

			default:
				stack = append(stack, el.Name.Local)
			}

		case xml.EndElement:
			if len(stack) > 0 && stack[len(stack)-1] == el.Name.Local {
				stack = stack[:len(stack)-1]
			}
			switch el.Name.Local {
			case "trk":
				inTrk = false
			case "rte":
				inRte = false
			case "trkpt":
				if inPoint && inTrk && curValid {
					trkPts = append(trkPts, cur)
				}
				inPoint = false
			case "rtept":
				if inPoint && inRte && curValid {
					rtePts = append(rtePts, cur)
				}
				inPoint = false
			}
		}
	}

	points := trkPts
	if len(points) == 0 {
		points = rtePts
	}
	if len(points) == 0 {
		return Route{}, ErrNoRoute
	}

	name := metaName
	switch {
	case trkSeen && trkName != "":
		name = trkName
	case !trkSeen && rteSeen && rteName != "":
		name = rteName
	}
	if name == "" {
		name = stripGPXSuffix(fallbackName)
	}

	return assemble(name, points), nil
}

// assemble turns collected points into a finished Route with the derived
// distance and elevation maximum.
func assemble(name string, points []rawPoint) Route {
	r := Route{
		ID:          NewID(),
		Name:        name,
		Coordinates: make([][2]float64, len(points)),
	}
	for i, p := range points {
		r.Coordinates[i] = [2]float64{p.lon, p.lat}
		if p.hasEle && (!r.ElevationValid || p.ele > r.ElevationMax) {
			r.ElevationMax = p.ele
			r.ElevationValid = true
		}
	}
	r.DistanceMeters = PathDistanceMeters(r.Coordinates)
	return r
}

func stripGPXSuffix(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".gpx") {
		return name[:len(name)-len(".gpx")]
	}
	return name
}
