package astro

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// Mean daily motions in degrees, J2000-ish approximations. Good enough for a
// standalone demo; real deployments inject a proper ephemeris engine.
var demoBodies = []struct {
	name   string
	epoch  float64 // longitude at the epoch, degrees
	motion float64 // degrees per day
}{
	{"sun", 280.46, 0.98565},
	{"moon", 218.32, 13.17640},
	{"mercury", 252.25, 4.09234},
	{"venus", 181.98, 1.60213},
	{"mars", 355.43, 0.52403},
	{"jupiter", 34.35, 0.08309},
	{"saturn", 50.08, 0.03346},
}

var signs = []string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo",
	"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
}

var demoEpoch = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

type demoPosition struct {
	Body      string  `json:"body"`
	Longitude float64 `json:"longitude"`
	Sign      string  `json:"sign"`
	Degree    float64 `json:"degree"`
}

type demoChart struct {
	Name       string         `json:"name"`
	Moment     time.Time      `json:"moment"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	ZodiacType string         `json:"zodiac_type"`
	Positions  []demoPosition `json:"positions"`
}

// NewDemoEngine returns a deterministic arithmetic stand-in for a real
// ephemeris library, so the server runs out of the box.
func NewDemoEngine() Engine {
	return EngineFunc(func(ctx context.Context, req ChartRequest) (*ChartResult, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}

		moment := req.Moment()
		days := moment.Sub(demoEpoch).Hours() / 24

		chart := demoChart{
			Name:       req.Name,
			Moment:     moment,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			ZodiacType: zodiacOrDefault(req.ZodiacType),
			Positions:  make([]demoPosition, 0, len(demoBodies)),
		}

		for _, body := range demoBodies {
			lon := math.Mod(body.epoch+body.motion*days, 360)
			if lon < 0 {
				lon += 360
			}
			chart.Positions = append(chart.Positions, demoPosition{
				Body:      body.name,
				Longitude: round4(lon),
				Sign:      signs[int(lon/30)%12],
				Degree:    round4(math.Mod(lon, 30)),
			})
		}

		payload, err := json.Marshal(chart)
		if err != nil {
			return nil, err
		}
		return &ChartResult{ContentType: "application/json", Payload: payload}, nil
	})
}

func zodiacOrDefault(z string) string {
	if z == "" {
		return "tropical"
	}
	return z
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
