package types

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const ewkbSRIDFlag = 0x20000000

// GeographyPoint represents a PostGIS Point expressed in geography format.
type GeographyPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Value produces an EWKT literal so Postgres can cast the geography.
func (g GeographyPoint) Value() (driver.Value, error) {
	return fmt.Sprintf("SRID=4326;POINT(%f %f)", g.Lng, g.Lat), nil
}

// Scan accepts the formats Postgres may hand back for a geography
// column: WKT/EWKT text, hex-encoded EWKB (the lib/pq default), or raw
// (E)WKB bytes.
func (g *GeographyPoint) Scan(value interface{}) error {
	if value == nil {
		*g = GeographyPoint{}
		return nil
	}

	switch v := value.(type) {
	case string:
		return g.parseAny(v)
	case []byte:
		text := strings.TrimSpace(string(v))
		if looksLikeText(text) || looksLikeHex(text) {
			return g.parseAny(text)
		}
		return g.parseWKB(v)
	default:
		if stringer, ok := value.(fmt.Stringer); ok {
			return g.parseAny(stringer.String())
		}
		return fmt.Errorf("geography: unsupported scan type %T", value)
	}
}

func looksLikeText(s string) bool {
	upper := strings.ToUpper(strings.TrimSpace(s))
	return strings.HasPrefix(upper, "SRID=") || strings.HasPrefix(upper, "POINT(")
}

func looksLikeHex(s string) bool {
	if len(s) < 42 || len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func (g *GeographyPoint) parseAny(raw string) error {
	raw = strings.TrimSpace(raw)
	if looksLikeText(raw) {
		return g.parseText(raw)
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("geography: decode hex ewkb: %w", err)
	}
	return g.parseWKB(decoded)
}

func (g *GeographyPoint) parseText(raw string) error {
	if strings.HasPrefix(strings.ToUpper(raw), "SRID=") {
		if idx := strings.Index(raw, ";"); idx != -1 {
			raw = strings.TrimSpace(raw[idx+1:])
		}
	}
	if !strings.HasPrefix(strings.ToUpper(raw), "POINT(") || !strings.HasSuffix(raw, ")") {
		return fmt.Errorf("geography: unsupported text %q", raw)
	}

	coords := strings.Fields(strings.TrimSpace(raw[len("POINT(") : len(raw)-1]))
	if len(coords) != 2 {
		return fmt.Errorf("geography: unexpected POINT content %q", raw)
	}

	lng, err := parseCoord(coords[0])
	if err != nil {
		return err
	}
	lat, err := parseCoord(coords[1])
	if err != nil {
		return err
	}
	g.Lng, g.Lat = lng, lat
	return nil
}

func (g *GeographyPoint) parseWKB(raw []byte) error {
	if len(raw) < 21 {
		return fmt.Errorf("geography: wkb too short")
	}

	var order binary.ByteOrder
	switch raw[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return fmt.Errorf("geography: invalid byte order %d", raw[0])
	}

	geomType := order.Uint32(raw[1:5])
	payload := raw[5:]
	if geomType&ewkbSRIDFlag != 0 {
		// EWKB carries a four-byte SRID between the type and the coords.
		if len(payload) < 20 {
			return fmt.Errorf("geography: ewkb too short")
		}
		geomType &^= ewkbSRIDFlag
		payload = payload[4:]
	}
	if geomType != 1 {
		return fmt.Errorf("geography: unexpected geometry type %d", geomType)
	}
	if len(payload) < 16 {
		return fmt.Errorf("geography: wkb missing coordinates")
	}

	g.Lng = math.Float64frombits(order.Uint64(payload[0:8]))
	g.Lat = math.Float64frombits(order.Uint64(payload[8:16]))
	return nil
}

func parseCoord(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("geography: empty coordinate")
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("geography: parse coordinate %w", err)
	}
	return f, nil
}
