package mission

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tiiuae/flightcontroller/internal/geo"
)

const header = "FlightMission"

// Parse builds a Mission from a ground-control payload of the form
//
//	$FlightMission H<lat>_<lon>_<alt>&W<lat>_<lon>_<alt>&S<ch>_<pwm>&C<speed>&L<lat>_<lon>_<alt>#
//
// Anything before the first '$' and after the last '#' (the signature) is
// ignored.
func Parse(payload string) (*Mission, error) {
	start := strings.Index(payload, "$")
	if start < 0 {
		return nil, errors.New("mission payload has no '$' marker")
	}
	body := payload[start+1:]
	end := strings.LastIndex(body, "#")
	if end < 0 {
		return nil, errors.New("mission payload has no '#' terminator")
	}
	body = body[:end]

	if !strings.HasPrefix(body, header) {
		return nil, errors.Errorf("unexpected mission header in %q", body)
	}
	body = strings.TrimSpace(strings.TrimPrefix(body, header))
	if body == "" {
		return nil, errors.New("mission is empty")
	}

	items := strings.Split(body, "&")
	commands := make([]Command, 0, len(items))
	for i, item := range items {
		c, err := parseCommand(item, i == 0)
		if err != nil {
			return nil, errors.WithMessagef(err, "mission item %d", i)
		}
		commands = append(commands, c)
	}

	return New(commands)
}

func parseCommand(item string, first bool) (Command, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, errors.New("empty item")
	}

	kind, args := item[0], item[1:]
	if kind == 'H' && !first {
		return nil, errors.New("home is only allowed as the first item")
	}
	if kind != 'H' && first {
		return nil, errors.Errorf("first item must be home, got %q", kind)
	}

	switch kind {
	case 'H', 'W':
		p, err := parsePosition(args)
		if err != nil {
			return nil, err
		}
		return Waypoint{Position: p}, nil
	case 'L':
		p, err := parsePosition(args)
		if err != nil {
			return nil, err
		}
		return Land{Position: p}, nil
	case 'S':
		v, err := parseInts(args, 2)
		if err != nil {
			return nil, err
		}
		return SetServo{Channel: int(v[0]), PWM: int(v[1])}, nil
	case 'C':
		v, err := parseInts(args, 1)
		if err != nil {
			return nil, err
		}
		return ChangeSpeed{Value: int32(v[0])}, nil
	}

	return nil, errors.Errorf("unknown command %q", kind)
}

func parsePosition(args string) (geo.Position, error) {
	fields := strings.Split(args, "_")
	if len(fields) != 3 {
		return geo.Unknown, errors.Errorf("expected lat_lon_alt, got %q", args)
	}
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geo.Unknown, errors.Wrapf(err, "bad coordinate %q", f)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return geo.Unknown, errors.Errorf("bad coordinate %q", f)
		}
		v[i] = x
	}
	if v[0] < -90 || v[0] > 90 {
		return geo.Unknown, errors.Errorf("latitude %f out of range", v[0])
	}
	if v[1] < -180 || v[1] > 180 {
		return geo.Unknown, errors.Errorf("longitude %f out of range", v[1])
	}

	return geo.Position{Lat: v[0], Lon: v[1], Alt: v[2]}, nil
}

func parseInts(args string, n int) ([]int64, error) {
	fields := strings.Split(args, "_")
	if len(fields) != n {
		return nil, errors.Errorf("expected %d values, got %q", n, args)
	}
	out := make([]int64, n)
	for i, f := range fields {
		x, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "bad value %q", f)
		}
		out[i] = x
	}
	return out, nil
}

// Format renders m in the payload form accepted by Parse, without signature.
func Format(m *Mission) string {
	items := make([]string, 0, m.Len())
	for i := 0; i < m.Len(); i++ {
		switch c := m.At(i).(type) {
		case Waypoint:
			kind := "W"
			if i == 0 {
				kind = "H"
			}
			items = append(items, kind+formatPosition(c.Position))
		case Land:
			items = append(items, "L"+formatPosition(c.Position))
		case SetServo:
			items = append(items, fmt.Sprintf("S%d_%d", c.Channel, c.PWM))
		case ChangeSpeed:
			items = append(items, fmt.Sprintf("C%d", c.Value))
		}
	}
	return "$" + header + " " + strings.Join(items, "&") + "#"
}

func formatPosition(p geo.Position) string {
	return fmt.Sprintf("%.7f_%.7f_%.2f", p.Lat, p.Lon, p.Alt)
}
