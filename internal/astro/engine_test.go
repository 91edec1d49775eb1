package astro

import (
	"context"
	"encoding/json"
	"testing"
)

func validRequest() ChartRequest {
	return ChartRequest{
		Name:      "Ada",
		Year:      1990,
		Month:     7,
		Day:       15,
		Hour:      14,
		Minute:    30,
		Latitude:  41.9,
		Longitude: 12.5,
		Timezone:  "Europe/Rome",
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	req := validRequest()
	req.Name = ""
	req.Month = 13

	err := req.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDemoEngineIsDeterministic(t *testing.T) {
	engine := NewDemoEngine()

	first, err := engine.Compute(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	second, err := engine.Compute(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	if string(first.Payload) != string(second.Payload) {
		t.Fatal("identical requests must produce identical charts")
	}
	if first.ContentType != "application/json" {
		t.Fatalf("unexpected content type %q", first.ContentType)
	}

	var chart struct {
		Positions []struct {
			Body      string  `json:"body"`
			Longitude float64 `json:"longitude"`
			Sign      string  `json:"sign"`
		} `json:"positions"`
	}
	if err := json.Unmarshal(first.Payload, &chart); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if len(chart.Positions) == 0 {
		t.Fatal("expected planetary positions")
	}
	for _, p := range chart.Positions {
		if p.Longitude < 0 || p.Longitude >= 360 {
			t.Fatalf("%s longitude %f out of range", p.Body, p.Longitude)
		}
		if p.Sign == "" {
			t.Fatalf("%s has no sign", p.Body)
		}
	}
}

func TestFingerprintPartsStableAcrossEquivalentRequests(t *testing.T) {
	a := validRequest()
	b := validRequest()
	b.Name = "  ada "

	pa := a.FingerprintParts()
	pb := b.FingerprintParts()
	if len(pa) != len(pb) {
		t.Fatal("fingerprint shape changed")
	}
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("part %d differs: %q vs %q", i, pa[i], pb[i])
		}
	}
}
